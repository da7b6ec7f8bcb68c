// Package answer defines the interface for answer generation backends.
package answer

import (
	"context"
	"errors"
)

// FailureText is stored on an entry whose answer could not be generated.
const FailureText = "Error generating answer."

// ErrEmptyAnswer is returned when the backend replies with no content.
var ErrEmptyAnswer = errors.New("empty answer")

// Generator produces a short answer to an interview question.
type Generator interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	Answer(ctx context.Context, question string) (string, error)
}
