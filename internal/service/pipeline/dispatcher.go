// Package pipeline moves completed utterances off the capture goroutine:
// transcription runs in order on one worker, answers run concurrently.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/observability/metrics"
	"interview-assistant/internal/service/answer"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/service/segment"
	"interview-assistant/internal/service/stt"
	"interview-assistant/internal/session"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Config sizes the dispatcher.
type Config struct {
	QueueSize         int  // utterances waiting for transcription
	AnswerConcurrency int  // answers generated at once
	Normalize         bool // peak-normalise before transcription
}

// DefaultConfig returns the sizes the assistant ships with.
func DefaultConfig() Config {
	return Config{QueueSize: 16, AnswerConcurrency: 4}
}

// Dispatcher implements audio.Sink.
type Dispatcher struct {
	sess        *session.Session
	transcriber stt.Transcriber
	generator   answer.Generator
	cfg         Config
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	queue chan segment.Utterance
	sem   *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
}

var _ audio.Sink = (*Dispatcher)(nil)

// New creates a dispatcher writing questions and answers into sess.
func New(sess *session.Session, transcriber stt.Transcriber, generator answer.Generator, cfg Config) *Dispatcher {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.AnswerConcurrency < 1 {
		cfg.AnswerConcurrency = 1
	}
	return &Dispatcher{
		sess:        sess,
		transcriber: transcriber,
		generator:   generator,
		cfg:         cfg,
		metrics:     metrics.DefaultMetrics,
		logger:      logging.WithSession(sess.ID()).With().Str("component", "dispatcher").Logger(),
		queue:       make(chan segment.Utterance, cfg.QueueSize),
		sem:         semaphore.NewWeighted(int64(cfg.AnswerConcurrency)),
	}
}

// Dispatch enqueues u for transcription. It blocks while the queue is full.
func (d *Dispatcher) Dispatch(ctx context.Context, u segment.Utterance) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- u:
		d.metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting utterances. Run drains what is already queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

// Run transcribes queued utterances in order until Close, then waits for
// outstanding answers. Per-utterance failures are logged, not returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			var u segment.Utterance
			select {
			case next, ok := <-d.queue:
				if !ok {
					return nil
				}
				u = next
			case <-gctx.Done():
				return gctx.Err()
			}
			d.metrics.DispatchQueueDepth.Set(float64(len(d.queue)))

			entry, ok := d.transcribe(gctx, u)
			if !ok {
				continue
			}

			if err := d.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			g.Go(func() error {
				defer d.sem.Release(1)
				d.answer(gctx, entry)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Dispatcher) transcribe(ctx context.Context, u segment.Utterance) (session.Entry, bool) {
	logger := logging.WithUtterance(d.sess.ID(), u.ID)
	provider := d.transcriber.Name()

	start := time.Now()
	res, err := d.transcriber.Transcribe(ctx, audio.Preprocess(u, d.cfg.Normalize))
	d.metrics.RecordSTT(provider, time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordSTTError(provider, "recognize")
		logger.Error().Err(err).Str("provider", provider).Msg("Transcription failed, dropping utterance")
		return session.Entry{}, false
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		d.metrics.TranscriptsEmpty.Inc()
		logger.Debug().Msg("Empty transcript, dropping utterance")
		return session.Entry{}, false
	}

	entry := d.sess.AddQuestion(u.ID, text)
	d.metrics.Questions.Inc()
	logger.Info().
		Int("index", entry.Index).
		Float64("confidence", res.Confidence).
		Str("question", text).
		Msg("Question recognised")
	return entry, true
}

func (d *Dispatcher) answer(ctx context.Context, entry session.Entry) {
	logger := logging.WithUtterance(d.sess.ID(), entry.UtteranceID)
	provider := d.generator.Name()

	start := time.Now()
	text, err := d.generator.Answer(ctx, entry.Question)
	d.metrics.RecordAnswer(provider, err, time.Since(start).Seconds())

	if err != nil {
		logger.Error().Err(err).Str("provider", provider).Int("index", entry.Index).Msg("Answer generation failed")
		if _, err := d.sess.SetFailed(entry.Index, answer.FailureText); err != nil {
			logger.Error().Err(err).Msg("Failed to record answer failure")
		}
		return
	}

	if _, err := d.sess.SetAnswer(entry.Index, text); err != nil {
		logger.Error().Err(err).Msg("Failed to record answer")
		return
	}
	logger.Info().Int("index", entry.Index).Msg("Answer ready")
}
