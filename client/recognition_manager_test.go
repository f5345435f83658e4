package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	text       string
	confidence float64
	err        error
	progress   []float64
	block      chan struct{}
	closed     atomic.Int32
}

func (f *fakeEngine) Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (Recognition, error) {
	for _, p := range f.progress {
		report(onProgress, "recognizing text", p)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return Recognition{}, f.err
	}
	return Recognition{Text: f.text, Confidence: f.confidence}, nil
}

func (f *fakeEngine) Close() error {
	f.closed.Add(1)
	return nil
}

func factoryFor(engines ...*fakeEngine) (EngineFactory, *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context, onProgress ProgressFunc) (Engine, error) {
		n := int(calls.Add(1)) - 1
		report(onProgress, "initialized", 1)
		return engines[n%len(engines)], nil
	}, &calls
}

type progressLog struct {
	mu      sync.Mutex
	updates []dto.RecognitionProgress
}

func (p *progressLog) record(u dto.RecognitionProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

func (p *progressLog) values() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, 0, len(p.updates))
	for _, u := range p.updates {
		out = append(out, u.Progress)
	}
	return out
}

func TestRecognizeBeforeInitialize(t *testing.T) {
	factory, _ := factoryFor(&fakeEngine{})
	m := NewRecognitionManager(factory, time.Second)

	_, err := m.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, dto.ErrRecognition)
}

func TestInitializeIsIdempotent(t *testing.T) {
	factory, calls := factoryFor(&fakeEngine{text: "ISIC"})
	m := NewRecognitionManager(factory, time.Second)

	require.NoError(t, m.Initialize(context.Background(), nil))
	require.NoError(t, m.Initialize(context.Background(), nil))
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, m.Initialized())
}

func TestInitializeFactoryError(t *testing.T) {
	m := NewRecognitionManager(func(ctx context.Context, onProgress ProgressFunc) (Engine, error) {
		return nil, errors.New("no tessdata")
	}, time.Second)

	err := m.Initialize(context.Background(), nil)
	assert.ErrorIs(t, err, dto.ErrRecognition)
	assert.False(t, m.Initialized())
}

func TestRecognizeClampsConfidence(t *testing.T) {
	factory, _ := factoryFor(&fakeEngine{text: "ISIC", confidence: 140})
	m := NewRecognitionManager(factory, time.Second)
	require.NoError(t, m.Initialize(context.Background(), nil))

	rec, err := m.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "ISIC", rec.Text)
	assert.Equal(t, 100.0, rec.Confidence)
}

func TestRecognizeWrapsEngineError(t *testing.T) {
	factory, _ := factoryFor(&fakeEngine{err: errors.New("bad image")})
	m := NewRecognitionManager(factory, time.Second)
	require.NoError(t, m.Initialize(context.Background(), nil))

	_, err := m.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, dto.ErrRecognition)
	assert.Contains(t, err.Error(), "bad image")
}

func TestProgressIsMonotonic(t *testing.T) {
	factory, _ := factoryFor(&fakeEngine{progress: []float64{0.1, 0.5, 0.3, 1.2, 0.9}})
	m := NewRecognitionManager(factory, time.Second)

	log := &progressLog{}
	require.NoError(t, m.Initialize(context.Background(), log.record))
	_, err := m.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)

	// first update comes from the factory
	assert.Equal(t, []float64{1, 0.1, 0.5, 1}, log.values())
}

func TestRecognizeTimeoutDetachesEngine(t *testing.T) {
	stuck := &fakeEngine{block: make(chan struct{})}
	fresh := &fakeEngine{text: "ISIC"}
	factory, calls := factoryFor(stuck, fresh)
	m := NewRecognitionManager(factory, 20*time.Millisecond)
	require.NoError(t, m.Initialize(context.Background(), nil))

	_, err := m.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, dto.ErrRecognitionTimeout)
	assert.ErrorIs(t, err, dto.ErrRecognition)
	assert.False(t, m.Initialized())

	close(stuck.block)
	assert.Eventually(t, func() bool { return stuck.closed.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Initialize(context.Background(), nil))
	rec, err := m.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "ISIC", rec.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTerminateIsIdempotent(t *testing.T) {
	engine := &fakeEngine{}
	factory, _ := factoryFor(engine)
	m := NewRecognitionManager(factory, time.Second)

	assert.NoError(t, m.Terminate())

	require.NoError(t, m.Initialize(context.Background(), nil))
	assert.NoError(t, m.Terminate())
	assert.NoError(t, m.Terminate())
	assert.Equal(t, int32(1), engine.closed.Load())
	assert.False(t, m.Initialized())
}

func TestApplyWhitelist(t *testing.T) {
	assert.Equal(t, "Name: Jan Novek\nValid: 30/09/2027", applyWhitelist("Name: Jan Nováček\nValid: 30/09/2027!"))
	assert.Equal(t, " ", applyWhitelist("Университет "))
}
