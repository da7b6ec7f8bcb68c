// Package mock provides a mock STT adapter for running without cloud
// credentials. It cycles through canned interview questions.
package mock

import (
	"context"
	"sync"
	"time"

	"interview-assistant/internal/service/segment"
	"interview-assistant/internal/service/stt"
)

// DefaultTranscripts are returned in order, one per utterance.
var DefaultTranscripts = []stt.Result{
	{Text: "Can you tell me about yourself?", Confidence: 0.96},
	{Text: "What is the difference between a process and a thread?", Confidence: 0.93},
	{Text: "How would you design a rate limiter?", Confidence: 0.91},
	{Text: "Tell me about a time you disagreed with a teammate.", Confidence: 0.89},
	{Text: "Do you have any questions for us?", Confidence: 0.97},
}

// Adapter implements stt.Transcriber with canned responses.
type Adapter struct {
	// Delay simulates provider latency.
	Delay time.Duration

	mu          sync.Mutex
	transcripts []stt.Result
	next        int
	calls       int
}

var _ stt.Transcriber = (*Adapter)(nil)

// New creates a mock adapter over DefaultTranscripts.
func New() *Adapter {
	return WithTranscripts(DefaultTranscripts)
}

// WithTranscripts creates a mock adapter cycling through results.
func WithTranscripts(results []stt.Result) *Adapter {
	return &Adapter{transcripts: results}
}

func (a *Adapter) Name() string { return "mock" }

// Transcribe returns the next canned transcript. Utterances without audio
// yield an empty result.
func (a *Adapter) Transcribe(ctx context.Context, u segment.Utterance) (stt.Result, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++

	if len(u.Data) == 0 || len(a.transcripts) == 0 {
		return stt.Result{}, nil
	}
	r := a.transcripts[a.next%len(a.transcripts)]
	a.next++
	return r, nil
}

// Calls returns how many utterances were transcribed.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
