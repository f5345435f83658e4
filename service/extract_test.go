package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aashish23092/isic-card-ocr/client"
	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtraction(factory client.EngineFactory) *ExtractionService {
	return NewExtractionService(factory, time.Second, NewImagePreprocessor(), &utils.ISICExtractor{Now: fixedClock}, DefaultMaxFileSize, DefaultLowConfidenceThreshold)
}

func TestExtractISICFieldsInitializesRecognizer(t *testing.T) {
	rec := &fakeRecognizer{text: cardText, confidence: 73}

	data, err := ExtractISICFields(context.Background(), rec, &utils.ISICExtractor{Now: fixedClock}, []byte("img"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.inits)
	assert.Equal(t, "123456789", data.CardNumber)
	assert.Equal(t, 73.0, data.Confidence)
}

func TestExtractionServiceExtract(t *testing.T) {
	var updates []dto.RecognitionProgress
	resp, err := newExtraction(textEngineFactory(cardText, 55)).Extract(context.Background(), colorPNG(t, 40, 30), func(p dto.RecognitionProgress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)

	assert.Equal(t, "Jan Novak", resp.FullName)
	assert.Equal(t, "Charles University", resp.Institution)
	assert.Equal(t, 55.0, resp.Confidence)
	assert.True(t, resp.LowConfidence)
	assert.NotEmpty(t, updates)
}

func TestExtractionServiceRejectsBadInput(t *testing.T) {
	svc := newExtraction(textEngineFactory(cardText, 90))

	_, err := svc.Extract(context.Background(), []byte("plain text, not an image"), nil)
	assert.ErrorIs(t, err, dto.ErrUnsupportedType)
}

func TestExtractionServiceEngineFailure(t *testing.T) {
	svc := newExtraction(func(ctx context.Context, onProgress client.ProgressFunc) (client.Engine, error) {
		return nil, errors.New("tessdata missing")
	})

	_, err := svc.Extract(context.Background(), colorPNG(t, 40, 30), nil)
	assert.ErrorIs(t, err, dto.ErrRecognition)
}

func TestSupplementCardNumber(t *testing.T) {
	data := &dto.ISICCardData{}
	supplementCardNumber(data, nil, func([]byte) (string, error) { return "", ErrNoBarcode })
	assert.Empty(t, data.CardNumber)

	supplementCardNumber(data, nil, func([]byte) (string, error) { return "11223344", nil })
	assert.Equal(t, "11223344", data.CardNumber)
}
