package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/observability/metrics"
	"interview-assistant/internal/service/answer"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/service/pipeline"
	"interview-assistant/internal/service/relay"
	"interview-assistant/internal/service/segment"
	"interview-assistant/internal/service/stt"
	"interview-assistant/internal/session"
)

var (
	ErrAlreadyRunning = errors.New("recording already running")
	ErrNotRunning     = errors.New("recording not running")
	ErrNotReady       = errors.New("silence threshold not set")
)

// SessionHistory records session boundaries. store.Store implements it.
type SessionHistory interface {
	StartSession(ctx context.Context, id string, startedAt time.Time) error
	EndSession(ctx context.Context, id string, endedAt time.Time) error
}

// RecorderConfig shapes every recording the Recorder starts.
type RecorderConfig struct {
	Format        segment.Format
	FrameSize     int
	FramesPerRead int
	PauseDuration time.Duration
	FlushOnStop   bool
	MediaClock    bool
	UpdateBuffer  int
	Dispatch      pipeline.Config
}

// Recorder is the start/stop toggle. Each Start opens the source and runs a
// fresh session through capture, dispatch and relay until Stop or until the
// source is exhausted.
type Recorder struct {
	src         audio.Source
	transcriber stt.Transcriber
	generator   answer.Generator
	relay       *relay.Relay
	history     SessionHistory
	cfg         RecorderConfig
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu        sync.Mutex
	threshold segment.Threshold
	ready     bool
	starting  bool // source being opened; mu is not held meanwhile
	current   *recording
	last      *session.Session
}

type recording struct {
	sess    *session.Session
	capture *audio.Capture
	disp    *pipeline.Dispatcher
	ctx     context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger
	done    chan struct{}
}

// NewRecorder wires a recorder. rl and history may be nil.
func NewRecorder(src audio.Source, transcriber stt.Transcriber, generator answer.Generator, rl *relay.Relay, history SessionHistory, cfg RecorderConfig) *Recorder {
	return &Recorder{
		src:         src,
		transcriber: transcriber,
		generator:   generator,
		relay:       rl,
		history:     history,
		cfg:         cfg,
		metrics:     metrics.DefaultMetrics,
		logger:      logging.WithComponent("recorder"),
	}
}

// Calibrate measures ambient noise once and keeps the threshold for every
// later recording.
func (r *Recorder) Calibrate(ctx context.Context, params segment.CalibrationParams) (segment.Threshold, error) {
	t, err := audio.Calibrate(ctx, r.src, r.cfg.Format, r.cfg.FrameSize, params)
	if err != nil {
		return segment.Threshold{}, err
	}
	r.SetThreshold(t)
	return t, nil
}

// SetThreshold installs a threshold, fixed or calibrated elsewhere.
func (r *Recorder) SetThreshold(t segment.Threshold) {
	r.mu.Lock()
	r.threshold = t
	r.ready = true
	r.mu.Unlock()

	r.metrics.RecordThreshold(string(t.Strategy()), t.Value())
	r.logger.Info().Str("threshold", t.String()).Msg("Silence threshold set")
}

// Threshold returns the active threshold, if one is set.
func (r *Recorder) Threshold() (segment.Threshold, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold, r.ready
}

// Ready reports whether recordings can start.
func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Running reports whether a recording is in progress.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Session returns the current session, or the most recent one after Stop.
func (r *Recorder) Session() (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return r.current.sess, true
	}
	return r.last, r.last != nil
}

// Start begins a new recording. ctx bounds the source open only; the
// recording runs until Stop, Shutdown or the end of the source.
func (r *Recorder) Start(ctx context.Context) (*session.Session, error) {
	r.mu.Lock()
	if !r.ready {
		r.mu.Unlock()
		return nil, ErrNotReady
	}
	if r.current != nil || r.starting {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.starting = true
	threshold := r.threshold
	r.mu.Unlock()

	rec, err := r.open(ctx, threshold)

	r.mu.Lock()
	r.starting = false
	if err == nil {
		r.current = rec
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	go r.supervise(rec)
	return rec.sess, nil
}

// open builds the session and opens the source. It runs without r.mu.
func (r *Recorder) open(ctx context.Context, threshold segment.Threshold) (*recording, error) {
	sess := session.New(r.cfg.UpdateBuffer)
	logger := logging.WithSession(sess.ID())

	disp := pipeline.New(sess, r.transcriber, r.generator, r.cfg.Dispatch)
	capture := audio.NewCapture(r.src, disp, audio.CaptureConfig{
		SessionId:     sess.ID(),
		Format:        r.cfg.Format,
		FrameSize:     r.cfg.FrameSize,
		FramesPerRead: r.cfg.FramesPerRead,
		Threshold:     threshold,
		PauseDuration: r.cfg.PauseDuration,
		FlushOnStop:   r.cfg.FlushOnStop,
		MediaClock:    r.cfg.MediaClock,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := capture.Start(runCtx); err != nil {
		cancel()
		sess.Close()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	if r.history != nil {
		if err := r.history.StartSession(ctx, sess.ID(), sess.StartedAt()); err != nil {
			logger.Error().Err(err).Msg("Failed to record session start")
		}
	}

	r.metrics.RecordSessionStart()
	logger.Info().Str("threshold", threshold.String()).Msg("Recording started")

	return &recording{
		sess:    sess,
		capture: capture,
		disp:    disp,
		ctx:     runCtx,
		cancel:  cancel,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// supervise waits for capture to end, drains the dispatcher, then closes the
// session so the relay finishes.
func (r *Recorder) supervise(rec *recording) {
	ctx, disp, logger := rec.ctx, rec.disp, rec.logger
	defer close(rec.done)
	defer rec.cancel()

	dispDone := make(chan error, 1)
	go func() { dispDone <- disp.Run(ctx) }()

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if r.relay != nil {
			r.relay.Run(ctx, rec.sess)
			return
		}
		for range rec.sess.Updates() {
		}
	}()

	<-rec.capture.Done()
	if err := rec.capture.Err(); err != nil {
		logger.Error().Err(err).Msg("Capture ended with error")
	}

	disp.Close()
	if err := <-dispDone; err != nil {
		logger.Error().Err(err).Msg("Dispatcher ended with error")
	}
	rec.sess.Close()
	<-relayDone

	ended := time.Now().UTC()
	if r.history != nil {
		if err := r.history.EndSession(context.WithoutCancel(ctx), rec.sess.ID(), ended); err != nil {
			logger.Error().Err(err).Msg("Failed to record session end")
		}
	}

	stats := rec.capture.Stats()
	r.metrics.RecordSessionEnd(ended.Sub(rec.sess.StartedAt()).Seconds())
	logger.Info().
		Int64("utterances", stats.Utterances).
		Int("entries", len(rec.sess.Entries())).
		Int64("droppedUpdates", rec.sess.Dropped()).
		Msg("Recording finished")

	r.mu.Lock()
	if r.current == rec {
		r.current = nil
		r.last = rec.sess
	}
	r.mu.Unlock()
}

// Stop ends the current recording and waits until its pending questions
// are answered, or until ctx is done.
func (r *Recorder) Stop(ctx context.Context) (session.Snapshot, error) {
	r.mu.Lock()
	rec := r.current
	r.mu.Unlock()

	if rec == nil {
		return session.Snapshot{}, ErrNotRunning
	}

	go rec.capture.Stop()
	select {
	case <-rec.done:
	case <-ctx.Done():
		return rec.sess.Snapshot(), ctx.Err()
	}
	return rec.sess.Snapshot(), nil
}

// Wait blocks until the current recording, if any, has finished.
func (r *Recorder) Wait(ctx context.Context) error {
	r.mu.Lock()
	rec := r.current
	r.mu.Unlock()

	if rec == nil {
		return nil
	}
	select {
	case <-rec.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops any recording and abandons in-flight work when ctx ends.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	rec := r.current
	r.mu.Unlock()

	if rec == nil {
		return nil
	}

	_, err := r.Stop(ctx)
	if err != nil && ctx.Err() != nil {
		rec.cancel()
		<-rec.done
	}
	return err
}
