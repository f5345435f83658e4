package client

import (
	"context"
	"fmt"

	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/otiai10/gosseract/v2"
)

// TesseractClient is an Engine backed by a single gosseract client
type TesseractClient struct {
	client *gosseract.Client
}

// NewTesseractEngineFactory returns a factory for Tesseract engines tuned for
// ISIC cards: fixed whitelist and sparse text segmentation, since card text
// sits in scattered blocks rather than paragraphs.
func NewTesseractEngineFactory(dataPath, language string) EngineFactory {
	return func(ctx context.Context, onProgress ProgressFunc) (Engine, error) {
		report(onProgress, "initializing tesseract", 0)

		client := gosseract.NewClient()

		if dataPath != "" {
			if err := client.SetTessdataPrefix(dataPath); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to set tessdata path: %w", err)
			}
		}

		if err := client.SetLanguage(language); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set language: %w", err)
		}

		if err := client.SetWhitelist(CharWhitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}

		if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}

		report(onProgress, "initialized tesseract", 1)
		logger.Infof("Tesseract client ready (version %s, language %s)", client.Version(), language)

		return &TesseractClient{client: client}, nil
	}
}

// Recognize extracts text and the mean word confidence from an image
func (tc *TesseractClient) Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (Recognition, error) {
	report(onProgress, "recognizing text", 0)

	if err := tc.client.SetImageFromBytes(image); err != nil {
		return Recognition{}, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := tc.client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("failed to extract text: %w", err)
	}
	report(onProgress, "recognizing text", 0.8)

	// Get bounding boxes to calculate confidence
	boxes, err := tc.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		report(onProgress, "recognizing text", 1)
		return Recognition{Text: text}, nil
	}

	var totalConf float64
	var count int
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		totalConf += box.Confidence
		count++
	}

	avgConf := 0.0
	if count > 0 {
		avgConf = totalConf / float64(count)
	}

	report(onProgress, "recognizing text", 1)
	return Recognition{Text: text, Confidence: avgConf}, nil
}

// Close releases the underlying Tesseract API
func (tc *TesseractClient) Close() error {
	return tc.client.Close()
}
