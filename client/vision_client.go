package client

import (
	"bytes"
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/apiv1"

	"github.com/Aashish23092/isic-card-ocr/logger"
)

// VisionClient is an Engine backed by Google Cloud Vision document text
// detection. Credentials come from the environment
// (GOOGLE_APPLICATION_CREDENTIALS).
type VisionClient struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionEngineFactory returns a factory for Cloud Vision engines
func NewVisionEngineFactory() EngineFactory {
	return func(ctx context.Context, onProgress ProgressFunc) (Engine, error) {
		report(onProgress, "connecting to cloud vision", 0)

		client, err := vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vision API client: %w", err)
		}

		report(onProgress, "connected to cloud vision", 1)
		logger.Info("Cloud Vision engine ready")
		return &VisionClient{client: client}, nil
	}
}

// Recognize runs document text detection; confidence is the mean page
// confidence scaled to 0..100
func (v *VisionClient) Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (Recognition, error) {
	report(onProgress, "recognizing text", 0)

	img, err := vision.NewImageFromReader(bytes.NewReader(image))
	if err != nil {
		return Recognition{}, fmt.Errorf("failed to create image object: %w", err)
	}

	annotation, err := v.client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return Recognition{}, fmt.Errorf("Vision API failed to detect text: %w", err)
	}
	report(onProgress, "recognizing text", 1)

	if annotation == nil {
		return Recognition{}, nil
	}

	pages := annotation.GetPages()
	var totalConf float64
	for _, page := range pages {
		totalConf += float64(page.GetConfidence())
	}

	avgConf := 0.0
	if len(pages) > 0 {
		avgConf = totalConf / float64(len(pages)) * 100
	}

	return Recognition{Text: applyWhitelist(annotation.GetText()), Confidence: avgConf}, nil
}

// Close closes the gRPC connection
func (v *VisionClient) Close() error {
	return v.client.Close()
}
