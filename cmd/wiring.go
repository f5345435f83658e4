package cmd

import (
	"net/http"

	"github.com/Aashish23092/isic-card-ocr/client"
	"github.com/Aashish23092/isic-card-ocr/config"
	"github.com/Aashish23092/isic-card-ocr/service"
	"github.com/Aashish23092/isic-card-ocr/utils"
)

func newEngineFactory(cfg *config.Config) client.EngineFactory {
	switch cfg.OCREngine {
	case config.EnginePaddle:
		return client.NewPaddleEngineFactory(cfg.PaddleAPIURL, &http.Client{Timeout: cfg.RecognitionTimeout})
	case config.EngineVision:
		return client.NewVisionEngineFactory()
	default:
		return client.NewTesseractEngineFactory(cfg.TesseractDataPath, cfg.OCRLanguage)
	}
}

// newUploader returns nil when no backend is configured
func newUploader(cfg *config.Config) service.CardUploader {
	if cfg.BackendURL == "" {
		return nil
	}
	return client.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout)
}

func newExtractionService(cfg *config.Config) *service.ExtractionService {
	return service.NewExtractionService(
		newEngineFactory(cfg),
		cfg.RecognitionTimeout,
		service.NewImagePreprocessor(),
		utils.NewISICExtractor(),
		cfg.MaxFileSize,
		cfg.LowConfidenceThreshold,
	)
}
