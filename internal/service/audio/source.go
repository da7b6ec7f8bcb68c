// Package audio reads fixed-size PCM frames from a capture source and feeds
// them through the utterance segmenter.
package audio

import (
	"context"
	"errors"
	"fmt"

	"interview-assistant/internal/service/segment"
)

var (
	// ErrSourceUnavailable is returned when the capture device or file
	// cannot be opened. It is fatal to session start.
	ErrSourceUnavailable = errors.New("audio source unavailable")

	// ErrFrameRead marks a single failed read. The capture loop skips the
	// frame and keeps going.
	ErrFrameRead = errors.New("audio frame read failed")
)

// Source opens capture streams.
type Source interface {
	// Open starts a stream delivering frames of frameSize samples per
	// channel in the given format.
	Open(ctx context.Context, format segment.Format, frameSize int) (Stream, error)
}

// Stream is an open capture stream. ReadFrame blocks until a full frame is
// available; it returns io.EOF when a finite source is exhausted.
type Stream interface {
	ReadFrame() ([]byte, error)
	Close() error
}

func unavailable(err error) error {
	if errors.Is(err, ErrSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}
