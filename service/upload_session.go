package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/Aashish23092/isic-card-ocr/utils"
)

// DefaultCompleteDelay is how long a completed session stays open
const DefaultCompleteDelay = 2 * time.Second

// User-facing notification texts
const (
	msgReadFailed      = "Could not read card. Please try a clearer image."
	msgLowConfidence   = "Please review and correct the extracted fields carefully."
	msgFileTooLarge    = "Image must be under 5MB"
	msgUnsupportedType = "Please upload a PNG, JPEG or WEBP image."
	msgSaveFailed      = "Could not save card data. Please try again."
	msgSaved           = "Your card data has been saved to your account."
	msgLocalOnly       = "Data processed on-device only (not uploaded)."
)

// CardUploader sends reviewed card data to the wallet backend
type CardUploader interface {
	UploadCardData(ctx context.Context, token string, req dto.ISICUploadRequest) error
}

// SessionOptions configures an UploadSession
type SessionOptions struct {
	ID            string
	VirtualCardID string
	Token         string

	Recognizer   Recognizer
	Preprocessor Preprocessor
	Extractor    *utils.ISICExtractor
	Uploader     CardUploader
	Notifier     Notifier

	// ScanBarcode fills a missing card number; nil disables it
	ScanBarcode func(image []byte) (string, error)

	MaxFileSize            int64
	LowConfidenceThreshold float64
	CompleteDelay          time.Duration
	Now                    func() time.Time

	// OnClose runs once after the session has been closed
	OnClose func(id string)
}

// UploadSession drives one card through upload, processing, review and
// completion. Its mutex is not held during preprocessing, recognition or the
// backend call, so State stays readable while those run.
type UploadSession struct {
	mu   sync.Mutex
	opts SessionOptions
	form *ReviewForm
	log  *logger.Logger

	step          Step
	file          *dto.UploadedFile
	data          *dto.ISICCardData
	progress      *dto.RecognitionProgress
	saveToServer  bool
	lowConfidence bool
	lastErr       string

	// busy is set while a review-step submission is in flight
	busy       bool
	closed     bool
	closeTimer *time.Timer
}

// NewUploadSession creates a session in the upload step
func NewUploadSession(opts SessionOptions) *UploadSession {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.LowConfidenceThreshold == 0 {
		opts.LowConfidenceThreshold = DefaultLowConfidenceThreshold
	}
	if opts.Extractor == nil {
		opts.Extractor = utils.NewISICExtractor()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(opts.ID)
	}

	return &UploadSession{
		opts:         opts,
		form:         NewReviewForm(opts.Now),
		log:          logger.WithSessionID(opts.ID),
		step:         StepUpload,
		saveToServer: true,
	}
}

// ID returns the session id
func (s *UploadSession) ID() string {
	return s.opts.ID
}

// State returns a snapshot of the session
func (s *UploadSession) State() dto.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := dto.SessionState{
		ID:            s.opts.ID,
		Step:          string(s.step),
		VirtualCardID: s.opts.VirtualCardID,
		SaveToServer:  s.saveToServer,
		LowConfidence: s.lowConfidence,
		Error:         s.lastErr,
	}
	if s.file != nil {
		state.FileName = s.file.Name
		state.FileSize = s.file.Size()
	}
	if s.data != nil {
		data := *s.data
		state.ExtractedData = &data
	}
	if s.progress != nil {
		p := *s.progress
		state.Progress = &p
	}
	return state
}

// SelectFile stores the card image, replacing any previous one. Only allowed
// in the upload step.
func (s *UploadSession) SelectFile(file dto.UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.step != StepUpload {
		return fmt.Errorf("%w: cannot select a file while in %s", dto.ErrInvalidTransition, s.step)
	}

	mimeType, err := CheckImageFile(file.Data, s.opts.MaxFileSize)
	if err != nil {
		switch {
		case errors.Is(err, dto.ErrFileTooLarge):
			s.opts.Notifier.Error("File too large", msgFileTooLarge)
		case errors.Is(err, dto.ErrUnsupportedType):
			s.opts.Notifier.Error("Invalid file type", msgUnsupportedType)
		}
		return err
	}

	s.file = &dto.UploadedFile{
		Name:     file.Name,
		MimeType: mimeType,
		Data:     append([]byte(nil), file.Data...),
	}
	s.lastErr = ""
	s.log.Infof("Selected %s (%d bytes)", file.Name, len(file.Data))
	return nil
}

// ClearFile removes the selected image
func (s *UploadSession) ClearFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.step != StepUpload {
		return fmt.Errorf("%w: cannot clear the file while in %s", dto.ErrInvalidTransition, s.step)
	}
	s.file = nil
	return nil
}

// Drop selects a file and processes it immediately
func (s *UploadSession) Drop(ctx context.Context, file dto.UploadedFile) error {
	if err := s.SelectFile(file); err != nil {
		return err
	}
	return s.Process(ctx)
}

// Process runs preprocessing, recognition and extraction over the selected
// image. On success the session moves to review; on any failure it returns
// to upload with a readable message.
func (s *UploadSession) Process(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.file == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no image selected", dto.ErrInvalidTransition)
	}
	next, err := Transition(s.step, EventProcess)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.step = next
	s.progress = nil
	s.lastErr = ""
	image := s.file.Data
	s.mu.Unlock()

	s.log.Info("Processing card image")
	data, procErr := s.recognize(ctx, image)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		// Close may have run before the worker was initialized.
		if s.opts.Recognizer != nil {
			if err := s.opts.Recognizer.Terminate(); err != nil {
				s.log.Warnf("Failed to release recognition worker: %v", err)
			}
		}
		return fmt.Errorf("%w: session closed during processing", dto.ErrSessionNotFound)
	}

	if procErr != nil {
		s.step, _ = Transition(s.step, EventFailed)
		s.lastErr = msgReadFailed
		s.mu.Unlock()

		s.log.Errorf("Card processing failed: %v", procErr)
		s.opts.Notifier.Error("OCR failed", msgReadFailed)
		return procErr
	}

	s.step, _ = Transition(s.step, EventRecognized)
	s.data = data
	s.lowConfidence = data.Confidence < s.opts.LowConfidenceThreshold
	low := s.lowConfidence
	s.mu.Unlock()

	if low {
		s.opts.Notifier.Warn("Low confidence detection", msgLowConfidence)
	}
	s.log.Infof("Card processed with confidence %.1f", data.Confidence)
	return nil
}

func (s *UploadSession) recognize(ctx context.Context, image []byte) (*dto.ISICCardData, error) {
	processed := image
	if s.opts.Preprocessor != nil {
		var err error
		processed, err = s.opts.Preprocessor.Preprocess(ctx, image)
		if err != nil {
			return nil, err
		}
	}

	data, err := ExtractISICFields(ctx, s.opts.Recognizer, s.opts.Extractor, processed, s.recordProgress)
	if err != nil {
		return nil, err
	}

	supplementCardNumber(data, image, s.opts.ScanBarcode)
	return data, nil
}

func (s *UploadSession) recordProgress(p dto.RecognitionProgress) {
	s.mu.Lock()
	s.progress = &p
	s.mu.Unlock()

	s.opts.Notifier.Progress(p)
}

// Validate checks review corrections and keeps them as the current data
func (s *UploadSession) Validate(fields dto.ISICCardData) (dto.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReview("validate"); err != nil {
		return dto.ValidationResult{}, err
	}

	s.storeCorrections(fields)
	return s.form.Validate(fields), nil
}

// SetSaveToServer records whether reviewed data may be sent to the backend
func (s *UploadSession) SetSaveToServer(save bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReview("change consent"); err != nil {
		return err
	}
	s.saveToServer = save
	return nil
}

// Submit validates the reviewed fields and, with consent, uploads them
// together with the original image. Invalid fields return
// dto.ValidationErrors and an upload failure returns dto.ErrUpload; both
// leave the session in review.
func (s *UploadSession) Submit(ctx context.Context, fields dto.ISICCardData) error {
	s.mu.Lock()
	if err := s.checkReview("submit"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.storeCorrections(fields)
	fields.Confidence = s.data.Confidence
	s.busy = true
	s.mu.Unlock()

	err := s.form.Submit(fields, func(valid dto.ISICCardData) error {
		return s.commit(ctx, valid)
	})

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	return err
}

func (s *UploadSession) commit(ctx context.Context, fields dto.ISICCardData) error {
	s.mu.Lock()
	save := s.saveToServer
	file := s.file
	s.mu.Unlock()

	if save {
		if err := s.upload(ctx, fields, file); err != nil {
			s.mu.Lock()
			s.lastErr = msgSaveFailed
			s.mu.Unlock()

			s.log.Errorf("Failed to upload card data: %v", err)
			s.opts.Notifier.Error("Failed to save", msgSaveFailed)
			return err
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: session closed during submission", dto.ErrSessionNotFound)
	}
	s.step, _ = Transition(s.step, EventSubmitted)
	s.lastErr = ""
	if s.opts.CompleteDelay > 0 {
		s.closeTimer = time.AfterFunc(s.opts.CompleteDelay, func() {
			if err := s.Close(); err != nil {
				s.log.Warnf("Auto-close failed: %v", err)
			}
		})
	}
	s.mu.Unlock()

	if save {
		s.opts.Notifier.Success("ISIC card linked successfully!", msgSaved)
	} else {
		s.opts.Notifier.Success("Card data extracted!", msgLocalOnly)
	}
	return nil
}

func (s *UploadSession) upload(ctx context.Context, fields dto.ISICCardData, file *dto.UploadedFile) error {
	if s.opts.Uploader == nil {
		return fmt.Errorf("%w: no backend configured", dto.ErrUpload)
	}

	req := dto.ISICUploadRequest{
		VirtualCardID:    s.opts.VirtualCardID,
		CardData:         fields,
		UploadScreenshot: true,
		ScreenshotBase64: dataURL(file),
	}

	err := s.opts.Uploader.UploadCardData(ctx, s.opts.Token, req)
	if err != nil && !errors.Is(err, dto.ErrUpload) {
		return fmt.Errorf("%w: %w", dto.ErrUpload, err)
	}
	return err
}

// Back discards the extracted data and returns to the upload step. The
// recognition worker is kept for the next attempt.
func (s *UploadSession) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReview("go back"); err != nil {
		return err
	}
	s.step, _ = Transition(s.step, EventBack)
	s.data = nil
	s.progress = nil
	s.lowConfidence = false
	s.lastErr = ""
	return nil
}

// Close resets the session, releases the recognition worker and runs the
// close hook. It waits for an in-flight recognition to finish. Calling it
// again is a no-op.
func (s *UploadSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
	s.step, _ = Transition(s.step, EventClose)
	s.file = nil
	s.data = nil
	s.progress = nil
	s.lowConfidence = false
	s.lastErr = ""
	s.saveToServer = true
	s.mu.Unlock()

	var err error
	if s.opts.Recognizer != nil {
		err = s.opts.Recognizer.Terminate()
	}
	if s.opts.OnClose != nil {
		s.opts.OnClose(s.opts.ID)
	}
	s.log.Info("Session closed")
	return err
}

// checkOpen must be called with mu held
func (s *UploadSession) checkOpen() error {
	if s.closed {
		return fmt.Errorf("%w: session closed", dto.ErrSessionNotFound)
	}
	return nil
}

// checkReview must be called with mu held
func (s *UploadSession) checkReview(action string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.step != StepReview || s.busy {
		return fmt.Errorf("%w: cannot %s while in %s", dto.ErrInvalidTransition, action, s.step)
	}
	return nil
}

// storeCorrections must be called with mu held
func (s *UploadSession) storeCorrections(fields dto.ISICCardData) {
	if s.data != nil {
		fields.Confidence = s.data.Confidence
	}
	s.data = &fields
}

func dataURL(file *dto.UploadedFile) string {
	if file == nil {
		return ""
	}
	return "data:" + file.MimeType + ";base64," + base64.StdEncoding.EncodeToString(file.Data)
}
