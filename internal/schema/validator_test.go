package schema

import (
	"errors"
	"testing"

	"interview-assistant/internal/models"
)

func validQuestion() models.QuestionEvent {
	return models.QuestionEvent{
		EventType:   models.EventTypeQuestion,
		SessionID:   "sess-1",
		UtteranceID: "sess-1-utt-1",
		Question:    "What is a goroutine?",
	}
}

func validAnswer() models.AnswerEvent {
	return models.AnswerEvent{
		EventType: models.EventTypeAnswer,
		SessionID: "sess-1",
		Answer:    "A lightweight thread.",
		Status:    "answered",
	}
}

func TestValidate(t *testing.T) {
	v := New()

	noQuestion := validQuestion()
	noQuestion.Question = ""
	negative := validQuestion()
	negative.Index = -1
	noSession := validAnswer()
	noSession.SessionID = ""
	badStatus := validAnswer()
	badStatus.Status = "pending"

	tests := []struct {
		name    string
		event   any
		wantErr bool
	}{
		{"valid question", validQuestion(), false},
		{"valid answer", validAnswer(), false},
		{"missing question", noQuestion, true},
		{"negative index", negative, true},
		{"missing session", noSession, true},
		{"unknown status", badStatus, true},
		{"unknown type", map[string]string{"text": "hi"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.event)
			if tt.wantErr && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}
