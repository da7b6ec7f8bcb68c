// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"

	"interview-assistant/internal/service/segment"
)

// Result is the text recognised in one utterance.
type Result struct {
	Text       string
	Confidence float64 // 0 when the provider does not report one
}

// Transcriber converts a completed utterance to text (Google, mock, ...).
// An empty Text with a nil error means nothing intelligible was said.
type Transcriber interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	Transcribe(ctx context.Context, u segment.Utterance) (Result, error)
}
