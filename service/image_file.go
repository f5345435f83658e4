package service

import (
	"fmt"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxFileSize is the largest accepted card image (5 MB)
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

var acceptedImageTypes = []string{"image/png", "image/jpeg", "image/webp"}

// CheckImageFile enforces the size limit and sniffs the content type.
// It returns the detected MIME type.
func CheckImageFile(data []byte, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", dto.ErrFileTooLarge, len(data), maxSize)
	}

	mtype := mimetype.Detect(data)
	for _, accepted := range acceptedImageTypes {
		if mtype.Is(accepted) {
			return accepted, nil
		}
	}
	return "", fmt.Errorf("%w: %s", dto.ErrUnsupportedType, mtype.String())
}
