package service

import (
	"testing"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[Step]map[Event]Step{
		StepUpload:     {EventProcess: StepProcessing, EventClose: StepUpload},
		StepProcessing: {EventRecognized: StepReview, EventFailed: StepUpload, EventClose: StepUpload},
		StepReview:     {EventBack: StepUpload, EventSubmitted: StepComplete, EventClose: StepUpload},
		StepComplete:   {EventClose: StepUpload},
	}
	steps := []Step{StepUpload, StepProcessing, StepReview, StepComplete}
	events := []Event{EventProcess, EventRecognized, EventFailed, EventBack, EventSubmitted, EventClose}

	for _, from := range steps {
		for _, ev := range events {
			next, err := Transition(from, ev)
			if want, ok := allowed[from][ev]; ok {
				require.NoError(t, err, "%s --%s-->", from, ev)
				assert.Equal(t, want, next)
			} else {
				assert.ErrorIs(t, err, dto.ErrInvalidTransition, "%s --%s-->", from, ev)
				assert.Equal(t, from, next)
			}
		}
	}
}

func TestSubmitWhileProcessingIsRejected(t *testing.T) {
	_, err := Transition(StepProcessing, EventSubmitted)
	assert.ErrorIs(t, err, dto.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "processing")
}
