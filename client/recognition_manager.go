package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
)

// RecognitionManager owns the lifecycle of one lazily created OCR engine.
// Each upload session holds its own manager.
type RecognitionManager struct {
	mu         sync.Mutex
	factory    EngineFactory
	timeout    time.Duration
	engine     Engine
	onProgress ProgressFunc
}

// NewRecognitionManager creates a manager. A zero timeout disables the
// recognition deadline.
func NewRecognitionManager(factory EngineFactory, timeout time.Duration) *RecognitionManager {
	return &RecognitionManager{
		factory: factory,
		timeout: timeout,
	}
}

// Initialize builds the engine unless one already exists. onProgress is kept
// for every recognition until Terminate.
func (m *RecognitionManager) Initialize(ctx context.Context, onProgress ProgressFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine != nil {
		return nil
	}

	engine, err := m.factory(ctx, onProgress)
	if err != nil {
		return fmt.Errorf("%w: failed to initialize engine: %w", dto.ErrRecognition, err)
	}

	m.engine = engine
	m.onProgress = onProgress
	logger.Debug("OCR engine initialized")
	return nil
}

// Initialized reports whether an engine is currently held
func (m *RecognitionManager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine != nil
}

// Recognize runs one OCR pass. On timeout the engine is detached and closed
// once the stuck call returns; the next Initialize creates a fresh one.
func (m *RecognitionManager) Recognize(ctx context.Context, image []byte) (Recognition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return Recognition{}, fmt.Errorf("%w: worker not initialized", dto.ErrRecognition)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	engine := m.engine
	tracker := &progressTracker{onProgress: m.onProgress, last: -1}
	defer tracker.stop()

	type result struct {
		rec Recognition
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := engine.Recognize(ctx, image, tracker.report)
		done <- result{rec: rec, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Recognition{}, fmt.Errorf("%w: %w", dto.ErrRecognition, r.err)
		}
		r.rec.Confidence = clamp(r.rec.Confidence, 0, 100)
		return r.rec, nil

	case <-ctx.Done():
		m.engine = nil
		m.onProgress = nil
		go func() {
			<-done
			if err := engine.Close(); err != nil {
				logger.Warnf("Failed to close abandoned OCR engine: %v", err)
			}
		}()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warnf("OCR recognition exceeded %s", m.timeout)
			return Recognition{}, dto.ErrRecognitionTimeout
		}
		return Recognition{}, fmt.Errorf("%w: %w", dto.ErrRecognition, ctx.Err())
	}
}

// Terminate releases the engine. Safe to call when none exists.
func (m *RecognitionManager) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return nil
	}

	err := m.engine.Close()
	m.engine = nil
	m.onProgress = nil
	logger.Debug("OCR engine terminated")

	if err != nil {
		return fmt.Errorf("failed to close OCR engine: %w", err)
	}
	return nil
}

// progressTracker forwards progress for a single recognition call, dropping
// updates that would move progress backwards or arrive after the call ended.
type progressTracker struct {
	mu         sync.Mutex
	onProgress ProgressFunc
	last       float64
	stopped    bool
}

func (t *progressTracker) report(p dto.RecognitionProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.onProgress == nil {
		return
	}
	p.Progress = clamp(p.Progress, 0, 1)
	if p.Progress < t.last {
		return
	}
	t.last = p.Progress
	t.onProgress(p)
}

func (t *progressTracker) stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
