package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	goqrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qrPNG(t *testing.T, content string) []byte {
	t.Helper()
	data, err := goqrcode.Encode(content, goqrcode.Medium, 256)
	require.NoError(t, err)
	return data
}

func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScanCardNumberQRDigits(t *testing.T) {
	number, err := ScanCardNumber(qrPNG(t, "ISIC 123456789"))
	require.NoError(t, err)
	assert.Equal(t, "123456789", number)
}

func TestScanCardNumberQRAlphanumeric(t *testing.T) {
	number, err := ScanCardNumber(qrPNG(t, "S420123456789A"))
	require.NoError(t, err)
	assert.Equal(t, "S420123456789A", number)
}

func TestScanCardNumberRejectsUnrelatedPayload(t *testing.T) {
	_, err := ScanCardNumber(qrPNG(t, "https://example.com/student/profile"))
	assert.ErrorIs(t, err, ErrNoBarcode)
}

func TestScanCardNumberNoCode(t *testing.T) {
	_, err := ScanCardNumber(blankPNG(t, 200, 120))
	assert.ErrorIs(t, err, ErrNoBarcode)
}

func TestScanCardNumberGarbage(t *testing.T) {
	_, err := ScanCardNumber([]byte("not an image"))
	assert.Error(t, err)
}

func TestCardNumberFromPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{"1234567890", "1234567890", true},
		{"card=98765432;v=2", "98765432", true},
		{"123456789012345678901", "", false},
		{"AB12C", "AB12C", true},
		{"AB1", "", false},
		{"S 420 123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, ok := cardNumberFromPayload(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
