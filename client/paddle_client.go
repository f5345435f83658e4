package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Aashish23092/isic-card-ocr/logger"
)

// PaddleClient is an Engine that calls a PaddleOCR serving endpoint
type PaddleClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewPaddleEngineFactory returns a factory for PaddleOCR HTTP engines
func NewPaddleEngineFactory(apiURL string, httpClient *http.Client) EngineFactory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return func(ctx context.Context, onProgress ProgressFunc) (Engine, error) {
		if apiURL == "" {
			return nil, fmt.Errorf("PaddleOCR API URL is not configured")
		}
		report(onProgress, "initialized paddleocr", 1)
		logger.Infof("PaddleOCR engine using %s", apiURL)
		return &PaddleClient{apiURL: apiURL, httpClient: httpClient}, nil
	}
}

type paddleResponse struct {
	Results [][]struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"results"`
}

// Recognize sends the image as base64 and joins the returned lines
func (p *PaddleClient) Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (Recognition, error) {
	report(onProgress, "recognizing text", 0)

	payload := map[string]interface{}{
		"images": []string{base64.StdEncoding.EncodeToString(image)},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Recognition{}, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return Recognition{}, fmt.Errorf("failed to build PaddleOCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Recognition{}, fmt.Errorf("failed to call PaddleOCR API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Recognition{}, fmt.Errorf("PaddleOCR API returned status %d: %s", resp.StatusCode, string(body))
	}
	report(onProgress, "recognizing text", 0.8)

	var result paddleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Recognition{}, fmt.Errorf("failed to decode PaddleOCR response: %w", err)
	}

	var textBuilder strings.Builder
	var totalConf float64
	var count int
	if len(result.Results) > 0 {
		for _, line := range result.Results[0] {
			textBuilder.WriteString(line.Text)
			textBuilder.WriteString("\n")
			totalConf += line.Confidence
			count++
		}
	}

	avgConf := 0.0
	if count > 0 {
		avgConf = totalConf / float64(count) * 100
	}

	report(onProgress, "recognizing text", 1)
	logger.Debugf("PaddleOCR extracted %d lines", count)
	return Recognition{Text: applyWhitelist(textBuilder.String()), Confidence: avgConf}, nil
}

// Close is a no-op; the HTTP client is shared
func (p *PaddleClient) Close() error {
	return nil
}
