package segment

import (
	"bytes"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// amplitudes are constant-value frames of 4 samples each.
func frames(amps ...int16) [][]byte {
	out := make([][]byte, len(amps))
	for i, a := range amps {
		out[i] = constFrame(4, a)
	}
	return out
}

func newTestSegmenter(t *testing.T, threshold float64, pause time.Duration) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(Config{
		SessionId:     "sess",
		Format:        PCM16(16000, 1),
		Threshold:     FixedThreshold(threshold),
		PauseDuration: pause,
	}, New())
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	return s
}

// feed pushes frames one time unit apart and collects emitted utterances.
func feed(s *Segmenter, in [][]byte, unit time.Duration) []Utterance {
	var out []Utterance
	for i, f := range in {
		if u, ok := s.Push(f, t0.Add(time.Duration(i)*unit)); ok {
			out = append(out, u)
		}
	}
	return out
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "IDLE"},
		{StateAccumulating, "ACCUMULATING"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestSegmenter_InitialState(t *testing.T) {
	s := newTestSegmenter(t, 100, time.Second)

	if s.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", s.State())
	}
	if s.Pending() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", s.Pending())
	}
	if s.SilenceRunning() {
		t.Error("expected no silence run")
	}
}

func TestSegmenter_AllSilentEmitsNothing(t *testing.T) {
	s := newTestSegmenter(t, 100, 0)

	out := feed(s, frames(0, 10, 50, 99, 0, 0, 0, 0), time.Second)
	if len(out) != 0 {
		t.Errorf("expected 0 utterances, got %d", len(out))
	}
	if s.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", s.State())
	}
	if s.SilenceRunning() {
		t.Error("silence run must not start while idle")
	}
}

func TestSegmenter_ImmediateFlush(t *testing.T) {
	s := newTestSegmenter(t, 100, 0)
	in := frames(200, 50)

	out := feed(s, in, time.Second)
	if len(out) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(out))
	}
	if !bytes.Equal(out[0].Data, in[0]) {
		t.Errorf("expected utterance to hold exactly the speech frame")
	}
	if out[0].Frames != 1 {
		t.Errorf("expected 1 frame, got %d", out[0].Frames)
	}
	if s.State() != StateIdle {
		t.Errorf("expected StateIdle after flush, got %v", s.State())
	}
}

func TestSegmenter_GracePeriodThenResume(t *testing.T) {
	// Two silent frames spanning 2 units < pause 3, then speech again.
	s := newTestSegmenter(t, 100, 3*time.Second)
	in := frames(200, 50, 50, 300)

	out := feed(s, in, time.Second)
	if len(out) != 0 {
		t.Fatalf("expected no flush, got %d utterances", len(out))
	}
	if s.State() != StateAccumulating {
		t.Errorf("expected StateAccumulating, got %v", s.State())
	}
	if s.SilenceRunning() {
		t.Error("speech must cancel the silence run")
	}

	want := append(append([]byte{}, in[0]...), in[3]...)
	if s.Pending() != len(want) {
		t.Errorf("expected %d pending bytes, got %d", len(want), s.Pending())
	}

	// Now let silence run out and check both sides of the gap are present.
	u, ok := s.Push(constFrame(4, 0), t0.Add(4*time.Second))
	if ok {
		t.Fatal("first silent frame of a new run must not flush")
	}
	u, ok = s.Push(constFrame(4, 0), t0.Add(7*time.Second))
	if !ok {
		t.Fatal("expected flush once pause elapsed")
	}
	if !bytes.Equal(u.Data, want) {
		t.Errorf("utterance should contain speech from both sides of the gap and no silence")
	}
	if u.Frames != 2 {
		t.Errorf("expected 2 frames, got %d", u.Frames)
	}
}

func TestSegmenter_ScenarioTwoUtterances(t *testing.T) {
	// threshold=100, pause=3 units, frames at 1/unit.
	s := newTestSegmenter(t, 100, 3*time.Second)
	in := frames(50, 50, 200, 200, 50, 50, 50, 50, 200)

	var flushedAt []int
	var out []Utterance
	for i, f := range in {
		if u, ok := s.Push(f, t0.Add(time.Duration(i)*time.Second)); ok {
			out = append(out, u)
			flushedAt = append(flushedAt, i)
		}
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 flushed utterance, got %d", len(out))
	}
	if flushedAt[0] != 7 {
		t.Errorf("expected flush on frame 7, got %d", flushedAt[0])
	}
	want := append(append([]byte{}, in[2]...), in[3]...)
	if !bytes.Equal(out[0].Data, want) {
		t.Errorf("expected first utterance to be [200,200]")
	}
	if !out[0].StartedAt.Equal(t0.Add(2*time.Second)) || !out[0].EndedAt.Equal(t0.Add(3*time.Second)) {
		t.Errorf("unexpected utterance bounds %v..%v", out[0].StartedAt, out[0].EndedAt)
	}

	// [200] is still open at stream end.
	if s.State() != StateAccumulating || s.Pending() != len(in[8]) {
		t.Errorf("expected trailing [200] pending, state=%v pending=%d", s.State(), s.Pending())
	}

	if _, ok := s.Stop(); ok {
		t.Error("trailing partial must be discarded on stop")
	}
	if s.State() != StateIdle || s.Pending() != 0 {
		t.Errorf("expected idle empty segmenter after stop, state=%v pending=%d", s.State(), s.Pending())
	}
}

func TestSegmenter_StopWithFlushOnStop(t *testing.T) {
	s, err := NewSegmenter(Config{
		SessionId:     "sess",
		Format:        PCM16(16000, 1),
		Threshold:     FixedThreshold(100),
		PauseDuration: time.Hour,
		FlushOnStop:   true,
	}, nil)
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}

	in := frames(500)
	s.Push(in[0], t0)
	u, ok := s.Stop()
	if !ok {
		t.Fatal("expected pending speech to be flushed on stop")
	}
	if !bytes.Equal(u.Data, in[0]) {
		t.Error("unexpected flushed data")
	}
	if u.ID != "sess-utt-1" {
		t.Errorf("expected fallback id 'sess-utt-1', got %s", u.ID)
	}
}

func TestSegmenter_StopWhenIdle(t *testing.T) {
	s := newTestSegmenter(t, 100, 0)
	if _, ok := s.Stop(); ok {
		t.Error("stop on idle segmenter must not emit")
	}
}

func TestSegmenter_ConcatenationProperty(t *testing.T) {
	// Every byte emitted comes from a non-silent frame, in order, and nothing
	// from closed utterances is lost.
	s := newTestSegmenter(t, 100, 2*time.Second)
	in := frames(0, 300, 400, 0, 500, 0, 0, 0, 0, 600, 700, 0, 0, 0, 800, 0, 0, 0)

	out := feed(s, in, time.Second)

	var emitted []byte
	for _, u := range out {
		if len(u.Data) == 0 {
			t.Error("empty utterance emitted")
		}
		emitted = append(emitted, u.Data...)
	}

	var speech []byte
	for _, f := range in {
		if !IsSilent(f, 100) {
			speech = append(speech, f...)
		}
	}

	if !bytes.Equal(emitted, speech) {
		t.Errorf("emitted bytes (%d) differ from speech bytes (%d)", len(emitted), len(speech))
	}
	if len(out) != 3 {
		t.Errorf("expected 3 utterances, got %d", len(out))
	}
	for i, u := range out {
		if u.Seq != uint64(i+1) {
			t.Errorf("utterance %d has seq %d", i, u.Seq)
		}
	}
}

func TestSegmenter_FlushedDataNotAliased(t *testing.T) {
	s := newTestSegmenter(t, 100, 0)
	in := frames(200, 0, 300, 0)

	out := feed(s, in, time.Second)
	if len(out) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(out))
	}
	if !bytes.Equal(out[0].Data, in[0]) || !bytes.Equal(out[1].Data, in[2]) {
		t.Error("second utterance must not overwrite the first one's data")
	}
}

func TestNewSegmenter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative pause", Config{Format: PCM16(16000, 1), PauseDuration: -time.Second}},
		{"zero sample rate", Config{Format: PCM16(0, 1)}},
		{"three channels", Config{Format: PCM16(16000, 3)}},
		{"8-bit samples", Config{Format: Format{SampleRate: 8000, Channels: 1, SampleWidth: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSegmenter(tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUtterance_Duration(t *testing.T) {
	u := Utterance{Data: make([]byte, 32000), Format: PCM16(16000, 1)}
	if u.Duration() != time.Second {
		t.Errorf("expected 1s, got %v", u.Duration())
	}
	if (Utterance{}).Duration() != 0 {
		t.Error("expected zero duration for zero format")
	}
}
