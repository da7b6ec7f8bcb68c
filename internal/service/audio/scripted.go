package audio

import (
	"context"
	"io"
	"sync"
	"time"

	"interview-assistant/internal/service/segment"
)

// Step is one scripted read: a frame or an error.
type Step struct {
	Frame []byte
	Err   error
}

// ScriptedSource replays a fixed sequence of reads. It backs tests and
// dry runs where no capture device exists.
type ScriptedSource struct {
	Steps   []Step
	OpenErr error

	// Repeat cycles Steps forever instead of returning io.EOF.
	Repeat bool
	// Pace sleeps between reads to imitate a live device.
	Pace time.Duration

	mu     sync.Mutex
	opened int
}

// Opens returns how many times the source was opened.
func (s *ScriptedSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *ScriptedSource) Open(ctx context.Context, format segment.Format, frameSize int) (Stream, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &scriptedStream{steps: s.Steps, repeat: s.Repeat, pace: s.Pace}, nil
}

type scriptedStream struct {
	steps  []Step
	repeat bool
	pace   time.Duration
	pos    int
	closed bool
}

func (s *scriptedStream) ReadFrame() ([]byte, error) {
	if s.closed {
		return nil, io.ErrClosedPipe
	}
	if s.pace > 0 {
		time.Sleep(s.pace)
	}
	if s.pos >= len(s.steps) {
		if !s.repeat || len(s.steps) == 0 {
			return nil, io.EOF
		}
		s.pos = 0
	}
	st := s.steps[s.pos]
	s.pos++
	return st.Frame, st.Err
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}
