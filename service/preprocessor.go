package service

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Preprocessing defaults tuned for phone photos of ISIC cards
const (
	DefaultMaxWidth   = 1920
	DefaultMaxHeight  = 1080
	DefaultContrast   = 1.2
	DefaultBrightness = 1.1
)

// ImagePreprocessor normalizes card photos before OCR
type ImagePreprocessor struct {
	MaxWidth   int
	MaxHeight  int
	Contrast   float64
	Brightness float64
}

// NewImagePreprocessor creates a preprocessor with the default pipeline
func NewImagePreprocessor() *ImagePreprocessor {
	return &ImagePreprocessor{
		MaxWidth:   DefaultMaxWidth,
		MaxHeight:  DefaultMaxHeight,
		Contrast:   DefaultContrast,
		Brightness: DefaultBrightness,
	}
}

// Preprocess decodes raw, downscales it to fit MaxWidth x MaxHeight, boosts
// contrast and brightness, converts to grayscale and re-encodes as PNG.
// raw is not modified.
func (p *ImagePreprocessor) Preprocess(ctx context.Context, raw []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dto.ErrImageDecode, err)
	}

	// Fit never upscales
	resized := imaging.Fit(img, p.MaxWidth, p.MaxHeight, imaging.Lanczos)

	adjusted := imaging.AdjustFunc(resized, p.adjustPixel)
	gray := adjust.Apply(adjusted, averageGray)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode processed image: %w", err)
	}
	return buf.Bytes(), nil
}

// adjustPixel applies contrast then brightness with CSS filter semantics
func (p *ImagePreprocessor) adjustPixel(c color.NRGBA) color.NRGBA {
	f := func(v uint8) uint8 {
		x := float64(v) / 255
		x = ((x-0.5)*p.Contrast + 0.5) * p.Brightness
		return uint8(math.Round(math.Min(1, math.Max(0, x)) * 255))
	}
	return color.NRGBA{R: f(c.R), G: f(c.G), B: f(c.B), A: c.A}
}

func averageGray(c color.RGBA) color.RGBA {
	avg := uint8((uint16(c.R) + uint16(c.G) + uint16(c.B)) / 3)
	return color.RGBA{R: avg, G: avg, B: avg, A: c.A}
}
