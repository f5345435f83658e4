package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/Aashish23092/isic-card-ocr/client"
	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/Aashish23092/isic-card-ocr/utils"
	"github.com/google/uuid"
)

// SessionConfig holds the dependencies shared by every session of a store
type SessionConfig struct {
	EngineFactory          client.EngineFactory
	RecognitionTimeout     time.Duration
	Preprocessor           Preprocessor
	Extractor              *utils.ISICExtractor
	Uploader               CardUploader
	MaxFileSize            int64
	LowConfidenceThreshold float64
	CompleteDelay          time.Duration
	Now                    func() time.Time

	// NewNotifier builds the notifier for a session; defaults to LogNotifier
	NewNotifier func(sessionID string) Notifier
}

// SessionStore keeps open upload sessions in memory. Card data is never
// written anywhere else; a closed session drops out of the store.
type SessionStore struct {
	mu       sync.RWMutex
	cfg      SessionConfig
	sessions map[string]*UploadSession
}

// NewSessionStore creates an empty store
func NewSessionStore(cfg SessionConfig) *SessionStore {
	return &SessionStore{
		cfg:      cfg,
		sessions: make(map[string]*UploadSession),
	}
}

// Create opens a session with its own recognition worker
func (st *SessionStore) Create(virtualCardID, token string) *UploadSession {
	id := uuid.NewString()

	var notifier Notifier
	if st.cfg.NewNotifier != nil {
		notifier = st.cfg.NewNotifier(id)
	}

	session := NewUploadSession(SessionOptions{
		ID:                     id,
		VirtualCardID:          virtualCardID,
		Token:                  token,
		Recognizer:             client.NewRecognitionManager(st.cfg.EngineFactory, st.cfg.RecognitionTimeout),
		Preprocessor:           st.cfg.Preprocessor,
		Extractor:              st.cfg.Extractor,
		Uploader:               st.cfg.Uploader,
		Notifier:               notifier,
		ScanBarcode:            ScanCardNumber,
		MaxFileSize:            st.cfg.MaxFileSize,
		LowConfidenceThreshold: st.cfg.LowConfidenceThreshold,
		CompleteDelay:          st.cfg.CompleteDelay,
		Now:                    st.cfg.Now,
		OnClose:                st.remove,
	})

	st.mu.Lock()
	st.sessions[id] = session
	st.mu.Unlock()

	logger.WithSessionID(id).Infof("Opened upload session for virtual card %q", virtualCardID)
	return session
}

// Get returns an open session
func (st *SessionStore) Get(id string) (*UploadSession, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	session, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrSessionNotFound, id)
	}
	return session, nil
}

// Close closes and removes a session
func (st *SessionStore) Close(id string) error {
	session, err := st.Get(id)
	if err != nil {
		return err
	}
	return session.Close()
}

// CloseAll closes every open session
func (st *SessionStore) CloseAll() {
	st.mu.RLock()
	sessions := make([]*UploadSession, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			logger.Warnf("Failed to close session %s: %v", s.ID(), err)
		}
	}
}

// Len reports the number of open sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *SessionStore) remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
