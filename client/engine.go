package client

import (
	"context"
	"strings"

	"github.com/Aashish23092/isic-card-ocr/dto"
)

// CharWhitelist restricts recognition to the characters printed on ISIC cards
const CharWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-/:. "

// Recognition is the raw output of one OCR pass
type Recognition struct {
	Text       string
	Confidence float64 // 0..100
}

// ProgressFunc receives progress updates from an engine
type ProgressFunc func(dto.RecognitionProgress)

// Engine is a text recognition backend. Implementations are not required to
// be safe for concurrent use; RecognitionManager serializes calls.
type Engine interface {
	Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (Recognition, error)
	Close() error
}

// EngineFactory builds a configured engine, reporting init progress
type EngineFactory func(ctx context.Context, onProgress ProgressFunc) (Engine, error)

func report(onProgress ProgressFunc, status string, progress float64) {
	if onProgress != nil {
		onProgress(dto.RecognitionProgress{Status: status, Progress: progress})
	}
}

// applyWhitelist drops characters outside CharWhitelist, keeping line breaks,
// for engines that cannot restrict their output themselves
func applyWhitelist(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || strings.ContainsRune(CharWhitelist, r) {
			return r
		}
		return -1
	}, text)
}
