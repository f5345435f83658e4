package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestPreprocessDownscales4K(t *testing.T) {
	p := NewImagePreprocessor()

	out, err := p.Preprocess(context.Background(), colorPNG(t, 3840, 2160))
	require.NoError(t, err)

	b := decodePNG(t, out).Bounds()
	assert.Equal(t, 1920, b.Dx())
	assert.Equal(t, 1080, b.Dy())
}

func TestPreprocessKeepsAspectRatio(t *testing.T) {
	p := NewImagePreprocessor()

	out, err := p.Preprocess(context.Background(), colorPNG(t, 1000, 2000))
	require.NoError(t, err)

	b := decodePNG(t, out).Bounds()
	assert.Equal(t, 540, b.Dx())
	assert.Equal(t, 1080, b.Dy())
}

func TestPreprocessDoesNotUpscale(t *testing.T) {
	p := NewImagePreprocessor()

	out, err := p.Preprocess(context.Background(), colorPNG(t, 640, 400))
	require.NoError(t, err)

	b := decodePNG(t, out).Bounds()
	assert.Equal(t, 640, b.Dx())
	assert.Equal(t, 400, b.Dy())
}

func TestPreprocessProducesGrayscale(t *testing.T) {
	p := NewImagePreprocessor()

	out, err := p.Preprocess(context.Background(), colorPNG(t, 64, 64))
	require.NoError(t, err)

	img := decodePNG(t, out)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 7 {
		for x := b.Min.X; x < b.Max.X; x += 7 {
			r, g, bl, _ := img.At(x, y).RGBA()
			require.Equal(t, r, g, "pixel %d,%d", x, y)
			require.Equal(t, g, bl, "pixel %d,%d", x, y)
		}
	}
}

func TestPreprocessAcceptsJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 50))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	out, err := NewImagePreprocessor().Preprocess(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 80, decodePNG(t, out).Bounds().Dx())
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	_, err := NewImagePreprocessor().Preprocess(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, dto.ErrImageDecode)
}

func TestPreprocessLeavesInputUntouched(t *testing.T) {
	raw := colorPNG(t, 120, 80)
	original := append([]byte(nil), raw...)

	_, err := NewImagePreprocessor().Preprocess(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, original, raw)
}

func TestAdjustPixel(t *testing.T) {
	p := NewImagePreprocessor()

	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 255, A: 255}, p.adjustPixel(color.NRGBA{R: 0, G: 10, B: 255, A: 255}))

	mid := p.adjustPixel(color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	// ((128/255-0.5)*1.2+0.5)*1.1*255 = 140.9
	assert.Equal(t, uint8(141), mid.R)
}

func TestAverageGray(t *testing.T) {
	got := averageGray(color.RGBA{R: 30, G: 60, B: 90, A: 255})
	assert.Equal(t, color.RGBA{R: 60, G: 60, B: 60, A: 255}, got)
}

func TestCheckImageFile(t *testing.T) {
	pngData := colorPNG(t, 10, 10)

	mime, err := CheckImageFile(pngData, DefaultMaxFileSize)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = CheckImageFile([]byte("%PDF-1.7\n"), DefaultMaxFileSize)
	assert.ErrorIs(t, err, dto.ErrUnsupportedType)

	_, err = CheckImageFile(pngData, int64(len(pngData)-1))
	assert.ErrorIs(t, err, dto.ErrFileTooLarge)

	_, err = CheckImageFile(pngData, int64(len(pngData)))
	assert.NoError(t, err)
}
