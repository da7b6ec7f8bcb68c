package segment

import (
	"errors"
	"fmt"
	"time"
)

// State is the segmenter's buffering state.
type State int

const (
	// StateIdle - buffer empty, no silence run.
	StateIdle State = iota
	// StateAccumulating - buffer holds speech not yet flushed.
	StateAccumulating
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAccumulating:
		return "ACCUMULATING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Format describes how the bytes of an utterance are laid out.
type Format struct {
	SampleRate  int // Hz
	Channels    int
	SampleWidth int // bytes per sample, 2 for int16 PCM
}

// PCM16 returns a signed 16-bit format.
func PCM16(sampleRate, channels int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, SampleWidth: 2}
}

// BytesPerSecond returns the data rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.SampleWidth
}

// Validate checks that the format can be captured and classified.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	if f.SampleWidth != 2 {
		return fmt.Errorf("only 16-bit samples are supported, got width %d", f.SampleWidth)
	}
	return nil
}

// Utterance is one contiguous run of speech bounded by qualifying silence.
type Utterance struct {
	ID        string
	Seq       uint64
	Data      []byte
	Format    Format
	Frames    int
	StartedAt time.Time // first speech frame
	EndedAt   time.Time // last speech frame
}

// Duration returns the audio length carried by Data.
func (u Utterance) Duration() time.Duration {
	bps := u.Format.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(len(u.Data)) * time.Second / time.Duration(bps)
}

// Config holds the segmentation policy.
type Config struct {
	SessionId string
	Format    Format
	Threshold Threshold

	// PauseDuration is how long silence must persist before the buffer is
	// flushed. Zero flushes on the first silent frame after speech.
	PauseDuration time.Duration

	// FlushOnStop emits pending speech when the session stops. When false
	// the partial buffer is discarded.
	FlushOnStop bool
}

var errNegativePause = errors.New("pause duration must not be negative")

// Segmenter is the silence-gated buffering state machine. It is owned by a
// single capture goroutine and is not safe for concurrent use.
//
// State transitions:
//
//	IDLE ──speech──→ ACCUMULATING ──silence ≥ pause──→ flush ──→ IDLE
//	                   │    ▲
//	                   │    └── speech (cancels the silence run)
//	                   └── silence < pause (timer running, nothing appended)
//
// Rules:
//   - speech: clear the silence run, append the frame
//   - silence while IDLE: no-op
//   - first silence while ACCUMULATING: start the silence run
//   - silence with elapsed ≥ pause: emit the buffer, reset to IDLE
type Segmenter struct {
	cfg Config
	gen *Generator

	state        State
	buf          []byte
	frames       int
	startedAt    time.Time
	lastSpeechAt time.Time

	silenceRunning bool
	silenceStart   time.Time

	seq uint64
}

// NewSegmenter creates a segmenter in IDLE state. gen may be nil, in which
// case utterance IDs are derived from the sequence number only.
func NewSegmenter(cfg Config, gen *Generator) (*Segmenter, error) {
	if cfg.PauseDuration < 0 {
		return nil, errNegativePause
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg, gen: gen, state: StateIdle}, nil
}

// State returns the current state.
func (s *Segmenter) State() State { return s.state }

// Pending returns the number of buffered bytes not yet flushed.
func (s *Segmenter) Pending() int { return len(s.buf) }

// SilenceRunning reports whether a silence run is being timed.
func (s *Segmenter) SilenceRunning() bool { return s.silenceRunning }

// Threshold returns the threshold frames are classified against.
func (s *Segmenter) Threshold() Threshold { return s.cfg.Threshold }

// Push classifies frame and applies one transition at time now.
// It returns a completed utterance when a pause boundary is reached.
func (s *Segmenter) Push(frame []byte, now time.Time) (Utterance, bool) {
	return s.PushClassified(frame, IsSilent(frame, s.cfg.Threshold.Value()), now)
}

// PushClassified applies one transition for an already classified frame.
func (s *Segmenter) PushClassified(frame []byte, silent bool, now time.Time) (Utterance, bool) {
	if !silent {
		s.silenceRunning = false
		if s.state == StateIdle {
			s.state = StateAccumulating
			s.startedAt = now
		}
		s.buf = append(s.buf, frame...)
		s.frames++
		s.lastSpeechAt = now
		return Utterance{}, false
	}

	if s.state == StateIdle {
		return Utterance{}, false
	}

	if !s.silenceRunning {
		s.silenceRunning = true
		s.silenceStart = now
	}

	// Silent frames are never appended; with a zero pause the first one
	// already satisfies the boundary.
	if now.Sub(s.silenceStart) < s.cfg.PauseDuration {
		return Utterance{}, false
	}
	return s.flush(), true
}

// Stop ends the session. Pending speech is emitted only with FlushOnStop;
// otherwise it is dropped and the segmenter returns to IDLE.
func (s *Segmenter) Stop() (Utterance, bool) {
	if s.state == StateIdle {
		return Utterance{}, false
	}
	if s.cfg.FlushOnStop {
		return s.flush(), true
	}
	s.reset()
	return Utterance{}, false
}

func (s *Segmenter) flush() Utterance {
	s.seq++
	u := Utterance{
		Seq:       s.seq,
		Data:      s.buf,
		Format:    s.cfg.Format,
		Frames:    s.frames,
		StartedAt: s.startedAt,
		EndedAt:   s.lastSpeechAt,
	}
	if s.gen != nil {
		u.ID = s.gen.Next(s.cfg.SessionId)
	} else {
		u.ID = fmt.Sprintf("%s-utt-%d", s.cfg.SessionId, s.seq)
	}
	s.reset()
	return u
}

func (s *Segmenter) reset() {
	// The flushed slice now belongs to the utterance; start a fresh one.
	s.buf = nil
	s.frames = 0
	s.silenceRunning = false
	s.silenceStart = time.Time{}
	s.startedAt = time.Time{}
	s.lastSpeechAt = time.Time{}
	s.state = StateIdle
}
