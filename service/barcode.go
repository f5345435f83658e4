package service

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoBarcode is returned when no readable card number code is found
var ErrNoBarcode = errors.New("no card number barcode found")

var (
	barcodeDigitRun = regexp.MustCompile(`(?:^|\D)(\d{8,10})(?:\D|$)`)
	barcodeAlnum    = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)
)

// ScanCardNumber looks for a QR code, then a Code 128 barcode, and returns a
// card number from the first payload that looks like one.
func ScanCardNumber(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image for barcode scan: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to create bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	readers := []gozxing.Reader{
		qrcode.NewQRCodeReader(),
		oned.NewCode128Reader(),
	}

	for _, reader := range readers {
		result, err := reader.Decode(bmp, hints)
		if err != nil {
			continue
		}
		if number, ok := cardNumberFromPayload(result.GetText()); ok {
			return number, nil
		}
	}

	return "", ErrNoBarcode
}

func cardNumberFromPayload(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if m := barcodeDigitRun.FindStringSubmatch(payload); m != nil {
		return m[1], true
	}
	if barcodeAlnum.MatchString(payload) {
		return payload, true
	}
	return "", false
}
