// Package session holds the state of one recording session: the questions
// heard so far, their answers and which one the user is looking at.
//
// A Session is shared between the transcription worker, the answer workers
// and the presentation side. Presentation consumes Updates() and can always
// fall back to Snapshot().
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"interview-assistant/internal/observability/metrics"
)

// ErrIndexOutOfRange is returned when selecting or updating an entry that
// does not exist.
var ErrIndexOutOfRange = errors.New("entry index out of range")

// NoSelection is the selected index of a session without entries.
const NoSelection = -1

// Status is the answer state of an entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnswered Status = "answered"
	StatusFailed   Status = "failed"
)

// Entry is one question and its answer.
type Entry struct {
	Index       int       `json:"index"`
	UtteranceID string    `json:"utteranceId"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer,omitempty"`
	Status      Status    `json:"status"`
	AskedAt     time.Time `json:"askedAt"`
	AnsweredAt  time.Time `json:"answeredAt,omitempty"`
}

// UpdateKind names what changed.
type UpdateKind string

const (
	UpdateQuestion  UpdateKind = "question"
	UpdateAnswer    UpdateKind = "answer"
	UpdateSelection UpdateKind = "selection"
)

// Update is one worker-to-presentation event.
type Update struct {
	Kind      UpdateKind `json:"kind"`
	SessionID string     `json:"sessionId"`
	Entry     Entry      `json:"entry"`
	Selected  int        `json:"selected"`
}

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Entries   []Entry   `json:"entries"`
	Selected  int       `json:"selected"`
}

// Session is safe for concurrent use.
type Session struct {
	id        string
	startedAt time.Time
	now       func() time.Time
	metrics   *metrics.Metrics

	mu       sync.RWMutex
	entries  []Entry
	selected int
	closed   bool
	dropped  int64

	updates chan Update
}

// New creates a session whose update queue holds up to buffer events.
func New(buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}
	return &Session{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
		now:       func() time.Time { return time.Now().UTC() },
		metrics:   metrics.DefaultMetrics,
		selected:  NoSelection,
		updates:   make(chan Update, buffer),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) StartedAt() time.Time { return s.startedAt }

// Updates returns the event queue. It is closed by Close.
func (s *Session) Updates() <-chan Update { return s.updates }

// Dropped returns the number of updates lost to a full queue.
func (s *Session) Dropped() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// AddQuestion appends a pending entry and applies the selection rule:
// with nothing selected, or with the previous newest entry selected, the
// selection moves to the new entry. Otherwise it stays put.
func (s *Session) AddQuestion(utteranceID, question string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		Index:       len(s.entries),
		UtteranceID: utteranceID,
		Question:    question,
		Status:      StatusPending,
		AskedAt:     s.now(),
	}

	followNewest := s.selected == NoSelection || s.selected == len(s.entries)-1
	s.entries = append(s.entries, e)
	if followNewest {
		s.selected = e.Index
	}

	s.emit(Update{Kind: UpdateQuestion, Entry: e})
	return e
}

// SetAnswer stores the answer for entry i.
func (s *Session) SetAnswer(i int, text string) (Entry, error) {
	return s.finish(i, text, StatusAnswered)
}

// SetFailed marks entry i as failed with text shown in place of an answer.
func (s *Session) SetFailed(i int, text string) (Entry, error) {
	return s.finish(i, text, StatusFailed)
}

func (s *Session) finish(i int, text string, status Status) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}

	e := &s.entries[i]
	e.Answer = text
	e.Status = status
	e.AnsweredAt = s.now()

	s.emit(Update{Kind: UpdateAnswer, Entry: *e})
	return *e, nil
}

// Select moves the selection to entry i.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	s.selected = i
	s.emit(Update{Kind: UpdateSelection, Entry: s.entries[i]})
	return nil
}

// Selected returns the selected entry, if any.
func (s *Session) Selected() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == NoSelection {
		return Entry{}, false
	}
	return s.entries[s.selected], true
}

// Entries returns a copy of all entries in question order.
func (s *Session) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:        s.id,
		StartedAt: s.startedAt,
		Entries:   append([]Entry{}, s.entries...),
		Selected:  s.selected,
	}
}

// Close closes the update queue. Later changes are still applied but no
// longer published.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

// emit publishes without blocking; callers hold mu.
func (s *Session) emit(u Update) {
	if s.closed {
		return
	}
	u.SessionID = s.id
	u.Selected = s.selected

	select {
	case s.updates <- u:
	default:
		s.dropped++
		s.metrics.UpdatesDropped.Inc()
	}
}
