package dto

import (
	"errors"
	"fmt"
	"strings"
)

// Custom errors
var (
	ErrImageDecode        = errors.New("failed to decode image")
	ErrRecognition        = errors.New("text recognition failed")
	ErrRecognitionTimeout = fmt.Errorf("%w: timed out", ErrRecognition)
	ErrUpload             = errors.New("failed to upload card data")
	ErrFileTooLarge       = errors.New("image must be under 5MB")
	ErrUnsupportedType    = errors.New("invalid file type. Supported: PNG, JPEG, WEBP")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrSessionNotFound    = errors.New("upload session not found")
)

// ValidationError is a per-field review form error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every invalid field of one submission
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "invalid card fields: " + strings.Join(msgs, "; ")
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Errors  []ValidationError `json:"errors,omitempty"`
}
