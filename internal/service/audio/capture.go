package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/observability/metrics"
	"interview-assistant/internal/service/segment"
)

// Sink receives completed utterances. Dispatch may block to apply
// back-pressure; the capture loop does not read while it is blocked.
type Sink interface {
	Dispatch(ctx context.Context, u segment.Utterance) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, u segment.Utterance) error

func (f SinkFunc) Dispatch(ctx context.Context, u segment.Utterance) error { return f(ctx, u) }

// CaptureConfig describes one recording session.
type CaptureConfig struct {
	SessionId     string
	Format        segment.Format
	FrameSize     int // samples per channel per frame
	FramesPerRead int // frames concatenated into one classification unit
	Threshold     segment.Threshold
	PauseDuration time.Duration
	FlushOnStop   bool

	// MediaClock stamps frames by stream position instead of the wall clock.
	// File sources read faster than real time and need it for pauses to
	// elapse.
	MediaClock bool
}

// Stats is a point-in-time view of a capture session.
type Stats struct {
	Groups     int64
	Silent     int64
	ReadErrors int64
	Utterances int64
	Discarded  int64
}

const (
	// Consecutive read failures tolerated before the loop starts backing off.
	readFailureBurst = 3
	readBackoffMin   = 5 * time.Millisecond
	readBackoffMax   = 250 * time.Millisecond
)

// Capture runs the sequential read, classify and segment loop on its own
// goroutine. A Capture is single use: Start it once, Stop it once.
type Capture struct {
	src     Source
	sink    Sink
	cfg     CaptureConfig
	gen     *segment.Generator
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	stopping atomic.Bool
	started  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
	err      error

	groups     atomic.Int64
	silent     atomic.Int64
	readErrors atomic.Int64
	utterances atomic.Int64
	discarded  atomic.Int64

	stopOnce sync.Once
}

// NewCapture creates a capture session reading from src and handing
// utterances to sink.
func NewCapture(src Source, sink Sink, cfg CaptureConfig) *Capture {
	if cfg.FramesPerRead < 1 {
		cfg.FramesPerRead = 1
	}
	return &Capture{
		src:     src,
		sink:    sink,
		cfg:     cfg,
		gen:     segment.New(),
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithSession(cfg.SessionId).With().Str("component", "capture").Logger(),
		now:     time.Now,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetClock replaces the time source used to stamp frames.
func (c *Capture) SetClock(now func() time.Time) {
	c.now = now
}

// Start opens the source and launches the loop. Open failures are returned
// synchronously and wrap ErrSourceUnavailable.
func (c *Capture) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("capture already started")
	}

	seg, err := segment.NewSegmenter(segment.Config{
		SessionId:     c.cfg.SessionId,
		Format:        c.cfg.Format,
		Threshold:     c.cfg.Threshold,
		PauseDuration: c.cfg.PauseDuration,
		FlushOnStop:   c.cfg.FlushOnStop,
	}, c.gen)
	if err != nil {
		c.err = fmt.Errorf("configure segmenter: %w", err)
		close(c.done)
		return c.err
	}

	stream, err := c.src.Open(ctx, c.cfg.Format, c.cfg.FrameSize)
	if err != nil {
		c.err = unavailable(err)
		close(c.done)
		return c.err
	}

	c.logger.Info().
		Int("sampleRate", c.cfg.Format.SampleRate).
		Int("channels", c.cfg.Format.Channels).
		Int("frameSize", c.cfg.FrameSize).
		Int("framesPerRead", c.cfg.FramesPerRead).
		Str("threshold", c.cfg.Threshold.String()).
		Dur("pause", c.cfg.PauseDuration).
		Msg("Capture started")

	go c.run(ctx, stream, seg)
	return nil
}

// Stop asks the loop to finish after the current read and waits for it.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		c.stopping.Store(true)
		close(c.stopCh)
	})
	<-c.done
}

// Done is closed when the loop has exited.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the loop, if any. io.EOF and a requested
// stop are not errors.
func (c *Capture) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Stats returns counters for this session.
func (c *Capture) Stats() Stats {
	return Stats{
		Groups:     c.groups.Load(),
		Silent:     c.silent.Load(),
		ReadErrors: c.readErrors.Load(),
		Utterances: c.utterances.Load(),
		Discarded:  c.discarded.Load(),
	}
}

func (c *Capture) run(ctx context.Context, stream Stream, seg *segment.Segmenter) {
	defer close(c.done)
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Error closing audio stream")
		}
	}()

	threshold := c.cfg.Threshold.Value()
	clock := c.clock()
	readLogger := c.logger.Sample(&zerolog.BurstSampler{
		Burst:       readFailureBurst,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})

	var failures int
	for !c.stopping.Load() && ctx.Err() == nil {
		group, eof, err := c.readGroup(stream)
		if err != nil {
			failures++
			c.readErrors.Add(1)
			c.metrics.RecordReadError()
			readLogger.Warn().Err(err).Int("consecutive", failures).Msg("Skipping failed frame read")
			c.backoff(ctx, failures)
			continue
		}
		failures = 0

		// An empty frame from a live read is silence; at EOF it is nothing.
		if len(group) > 0 || !eof {
			silent := segment.IsSilent(group, threshold)
			c.groups.Add(1)
			if silent {
				c.silent.Add(1)
			}
			c.metrics.RecordFrame(len(group), silent)

			if u, ok := seg.PushClassified(group, silent, clock(len(group))); ok {
				if err := c.emit(ctx, u); err != nil {
					c.err = err
					return
				}
			}
		}

		if eof {
			c.logger.Info().Msg("Audio source exhausted")
			break
		}
	}

	pending := seg.Pending()
	if u, ok := seg.Stop(); ok {
		// The session is over; deliver the tail even if ctx is done.
		if err := c.emit(context.WithoutCancel(ctx), u); err != nil {
			c.err = err
		}
	} else if pending > 0 {
		c.discarded.Add(1)
		c.metrics.RecordUtteranceDiscarded("stop")
		c.logger.Info().Int("bytes", pending).Msg("Discarded partial utterance on stop")
	}

	c.logger.Info().
		Int64("groups", c.groups.Load()).
		Int64("utterances", c.utterances.Load()).
		Int64("readErrors", c.readErrors.Load()).
		Msg("Capture stopped")
}

// backoff pauses after a run of failed reads so a dead device does not spin
// the loop. It returns early on Stop or ctx cancellation.
func (c *Capture) backoff(ctx context.Context, failures int) {
	if failures < readFailureBurst {
		return
	}
	d := readBackoffMin << min(failures-readFailureBurst, 6)
	if d > readBackoffMax {
		d = readBackoffMax
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.stopCh:
	case <-ctx.Done():
	}
}

// clock returns a stamp func that is called once per classified group with
// the group's byte length.
func (c *Capture) clock() func(n int) time.Time {
	if !c.cfg.MediaClock {
		return func(int) time.Time { return c.now() }
	}

	base := c.now()
	bps := int64(c.cfg.Format.BytesPerSecond())
	var consumed int64
	return func(n int) time.Time {
		t := base.Add(time.Duration(consumed) * time.Second / time.Duration(bps))
		consumed += int64(n)
		return t
	}
}

// readGroup reads FramesPerRead frames and concatenates them. A failed read
// discards the whole group. At EOF the frames read so far are returned.
func (c *Capture) readGroup(stream Stream) (group []byte, eof bool, err error) {
	for i := 0; i < c.cfg.FramesPerRead; i++ {
		frame, err := stream.ReadFrame()
		if errors.Is(err, io.EOF) {
			return group, true, nil
		}
		if err != nil {
			if errors.Is(err, ErrFrameRead) {
				return nil, false, err
			}
			return nil, false, fmt.Errorf("%w: %v", ErrFrameRead, err)
		}
		if c.cfg.FramesPerRead == 1 {
			return frame, false, nil
		}
		group = append(group, frame...)
	}
	return group, false, nil
}

func (c *Capture) emit(ctx context.Context, u segment.Utterance) error {
	c.utterances.Add(1)
	c.metrics.RecordUtterance(len(u.Data), u.Duration().Seconds())

	logger := logging.WithUtterance(c.cfg.SessionId, u.ID)
	logger.Info().
		Uint64("seq", u.Seq).
		Int("bytes", len(u.Data)).
		Int("frames", u.Frames).
		Dur("duration", u.Duration()).
		Msg("Utterance complete")

	if err := c.sink.Dispatch(ctx, u); err != nil {
		if ctx.Err() != nil {
			// Stopped while waiting for queue space.
			return nil
		}
		return fmt.Errorf("dispatch utterance %s: %w", u.ID, err)
	}
	return nil
}
