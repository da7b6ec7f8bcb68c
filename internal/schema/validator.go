// Package schema checks outgoing events before they are published.
package schema

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"interview-assistant/internal/models"
)

// ErrInvalidEvent is returned for events missing required fields.
var ErrInvalidEvent = errors.New("invalid event")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks required fields of known event types. Unknown types pass.
func (v *Validator) Validate(event any) error {
	var missing []string

	switch e := event.(type) {
	case models.QuestionEvent:
		missing = required(map[string]string{
			"eventType":   e.EventType,
			"sessionId":   e.SessionID,
			"utteranceId": e.UtteranceID,
			"question":    e.Question,
		})
		if e.Index < 0 {
			missing = append(missing, "index")
		}
	case models.AnswerEvent:
		missing = required(map[string]string{
			"eventType": e.EventType,
			"sessionId": e.SessionID,
			"answer":    e.Answer,
			"status":    e.Status,
		})
		if e.Index < 0 {
			missing = append(missing, "index")
		}
		if e.Status != "" && e.Status != "answered" && e.Status != "failed" {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, e.Status)
		}
	default:
		log.Debug().Type("event", event).Msg("No schema for event type")
		return nil
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrInvalidEvent, missing)
	}
	return nil
}

func required(fields map[string]string) []string {
	var missing []string
	// Stable order for error messages.
	for _, name := range []string{"eventType", "sessionId", "utteranceId", "question", "answer", "status"} {
		v, ok := fields[name]
		if ok && v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
