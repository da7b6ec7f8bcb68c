// Package mock answers every question with a fixed reply.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"interview-assistant/internal/service/answer"
)

// Reply is the default canned answer.
const Reply = "This is a mock answer."

// Generator implements answer.Generator without a network call.
type Generator struct {
	Reply string
	Delay time.Duration
	Err   error

	calls atomic.Int64
}

var _ answer.Generator = (*Generator)(nil)

// New returns a generator answering with Reply.
func New() *Generator {
	return &Generator{Reply: Reply}
}

func (g *Generator) Name() string { return "mock" }

func (g *Generator) Answer(ctx context.Context, question string) (string, error) {
	g.calls.Add(1)
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

// Calls returns the number of questions answered.
func (g *Generator) Calls() int64 { return g.calls.Load() }
