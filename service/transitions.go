package service

import (
	"fmt"

	"github.com/Aashish23092/isic-card-ocr/dto"
)

// Step is a stage of the card upload flow
type Step string

const (
	StepUpload     Step = "upload"
	StepProcessing Step = "processing"
	StepReview     Step = "review"
	StepComplete   Step = "complete"
)

// Event drives a Step transition
type Event string

const (
	EventProcess    Event = "process"
	EventRecognized Event = "recognized"
	EventFailed     Event = "failed"
	EventBack       Event = "back"
	EventSubmitted  Event = "submitted"
	EventClose      Event = "close"
)

var transitions = map[Step]map[Event]Step{
	StepUpload: {
		EventProcess: StepProcessing,
		EventClose:   StepUpload,
	},
	StepProcessing: {
		EventRecognized: StepReview,
		EventFailed:     StepUpload,
		EventClose:      StepUpload,
	},
	StepReview: {
		EventBack:      StepUpload,
		EventSubmitted: StepComplete,
		EventClose:     StepUpload,
	},
	StepComplete: {
		EventClose: StepUpload,
	},
}

// Transition returns the step reached from "from" on ev
func Transition(from Step, ev Event) (Step, error) {
	if next, ok := transitions[from][ev]; ok {
		return next, nil
	}
	return from, fmt.Errorf("%w: cannot %s while in %s", dto.ErrInvalidTransition, ev, from)
}
