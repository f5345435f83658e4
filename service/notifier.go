package service

import (
	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
)

// Notifier receives user-facing messages from an upload session
type Notifier interface {
	Progress(p dto.RecognitionProgress)
	Info(title, description string)
	Success(title, description string)
	Warn(title, description string)
	Error(title, description string)
}

// LogNotifier writes session notifications to the service log
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier tagged with the session id
func NewLogNotifier(sessionID string) *LogNotifier {
	return &LogNotifier{log: logger.WithSessionID(sessionID)}
}

func (n *LogNotifier) Progress(p dto.RecognitionProgress) {
	n.log.Debugw("Recognition progress", "status", p.Status, "progress", p.Progress)
}

func (n *LogNotifier) Info(title, description string) {
	n.log.Infow(title, "description", description)
}

func (n *LogNotifier) Success(title, description string) {
	n.log.Infow(title, "description", description)
}

func (n *LogNotifier) Warn(title, description string) {
	n.log.Warnw(title, "description", description)
}

func (n *LogNotifier) Error(title, description string) {
	n.log.Errorw(title, "description", description)
}
