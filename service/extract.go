package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Aashish23092/isic-card-ocr/client"
	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/Aashish23092/isic-card-ocr/utils"
)

// DefaultLowConfidenceThreshold is the OCR confidence below which users are
// asked to review the extracted fields carefully
const DefaultLowConfidenceThreshold = 60.0

// Recognizer is the recognition worker used by extraction and sessions
type Recognizer interface {
	Initialize(ctx context.Context, onProgress client.ProgressFunc) error
	Recognize(ctx context.Context, image []byte) (client.Recognition, error)
	Terminate() error
}

// Preprocessor prepares an image for recognition
type Preprocessor interface {
	Preprocess(ctx context.Context, raw []byte) ([]byte, error)
}

// ExtractISICFields initializes the recognizer if needed, runs OCR over
// image and parses the text into card fields
func ExtractISICFields(ctx context.Context, rec Recognizer, extractor *utils.ISICExtractor, image []byte, onProgress client.ProgressFunc) (*dto.ISICCardData, error) {
	if err := rec.Initialize(ctx, onProgress); err != nil {
		return nil, err
	}

	result, err := rec.Recognize(ctx, image)
	if err != nil {
		return nil, err
	}

	data := extractor.Extract(result.Text)
	data.Confidence = result.Confidence

	logger.Debugf("Extracted ISIC fields with confidence %.1f", data.Confidence)
	return &data, nil
}

// ExtractionService performs one-shot extraction without a session
type ExtractionService struct {
	factory                client.EngineFactory
	timeout                time.Duration
	preprocessor           Preprocessor
	extractor              *utils.ISICExtractor
	maxFileSize            int64
	lowConfidenceThreshold float64
}

// NewExtractionService creates an ExtractionService
func NewExtractionService(factory client.EngineFactory, timeout time.Duration, preprocessor Preprocessor, extractor *utils.ISICExtractor, maxFileSize int64, lowConfidenceThreshold float64) *ExtractionService {
	return &ExtractionService{
		factory:                factory,
		timeout:                timeout,
		preprocessor:           preprocessor,
		extractor:              extractor,
		maxFileSize:            maxFileSize,
		lowConfidenceThreshold: lowConfidenceThreshold,
	}
}

// Extract validates, preprocesses and recognizes one card image. Each call
// gets its own recognition worker, released before returning.
func (s *ExtractionService) Extract(ctx context.Context, fileData []byte, onProgress client.ProgressFunc) (*dto.ExtractResponse, error) {
	if _, err := CheckImageFile(fileData, s.maxFileSize); err != nil {
		return nil, err
	}

	processed, err := s.preprocessor.Preprocess(ctx, fileData)
	if err != nil {
		return nil, err
	}

	manager := client.NewRecognitionManager(s.factory, s.timeout)
	defer func() {
		if err := manager.Terminate(); err != nil {
			logger.Warnf("Failed to release OCR engine: %v", err)
		}
	}()

	data, err := ExtractISICFields(ctx, manager, s.extractor, processed, onProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to extract card fields: %w", err)
	}

	supplementCardNumber(data, fileData, ScanCardNumber)

	return &dto.ExtractResponse{
		ISICCardData:  *data,
		LowConfidence: data.Confidence < s.lowConfidenceThreshold,
	}, nil
}

// supplementCardNumber fills an empty card number from a QR or barcode
func supplementCardNumber(data *dto.ISICCardData, image []byte, scan func([]byte) (string, error)) {
	if data.CardNumber != "" || scan == nil {
		return
	}
	number, err := scan(image)
	if err != nil {
		logger.Debugf("No card number barcode: %v", err)
		return
	}
	logger.Info("Card number recovered from barcode")
	data.CardNumber = number
}
