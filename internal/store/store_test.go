package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"interview-assistant/internal/session"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_EntriesUpsert(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	asked := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.StartSession(ctx, "sess-1", asked); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	pending := session.Entry{Index: 0, UtteranceID: "sess-1-utt-1", Question: "Why Go?", Status: session.StatusPending, AskedAt: asked}
	if err := s.SaveEntry(ctx, "sess-1", pending); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	answered := pending
	answered.Answer = "Simplicity."
	answered.Status = session.StatusAnswered
	answered.AnsweredAt = asked.Add(2 * time.Second)
	if err := s.SaveEntry(ctx, "sess-1", answered); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	second := session.Entry{Index: 1, UtteranceID: "sess-1-utt-2", Question: "And Rust?", Status: session.StatusPending, AskedAt: asked}
	if err := s.SaveEntry(ctx, "sess-1", second); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	entries, err := s.ListEntries(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Answer != "Simplicity." || entries[0].Status != session.StatusAnswered {
		t.Errorf("expected first entry updated in place, got %+v", entries[0])
	}
	if entries[1].Question != "And Rust?" {
		t.Errorf("expected 'And Rust?', got %q", entries[1].Question)
	}
}

func TestStore_ListSessions(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		if err := s.StartSession(ctx, id, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
	}
	if err := s.SaveEntry(ctx, "new", session.Entry{Index: 0, Question: "q", Status: session.StatusPending}); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	if err := s.EndSession(ctx, "old", base.Add(30*time.Minute)); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sessions, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "new" || sessions[0].Entries != 1 {
		t.Errorf("expected newest session first with 1 entry, got %+v", sessions[0])
	}
	if sessions[1].EndedAt == nil {
		t.Error("expected old session to have an end time")
	}
}

func TestStore_UnknownSession(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.ListEntries(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := s.EndSession(ctx, "missing", time.Now()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_StartSessionTwice(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.StartSession(ctx, "sess", now); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := s.StartSession(ctx, "sess", now); err != nil {
		t.Errorf("expected duplicate start to be a no-op, got %v", err)
	}
}
