package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ViewerEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev ViewerEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return ev
}

func TestHub_BroadcastAndReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newHub(1)
	go hub.run(ctx)

	srv := httptest.NewServer(wsHandler(hub))
	defer srv.Close()

	live := dialHub(t, srv.URL)
	// Registration happens in the handler; give the hub a moment.
	time.Sleep(20 * time.Millisecond)

	hub.broadcast <- ViewerEvent{EventType: "interview.question", Index: 0, Question: "first"}
	hub.broadcast <- ViewerEvent{EventType: "interview.question", Index: 1, Question: "second"}

	if ev := readEvent(t, live); ev.Question != "first" {
		t.Errorf("expected 'first', got %q", ev.Question)
	}
	if ev := readEvent(t, live); ev.Question != "second" {
		t.Errorf("expected 'second', got %q", ev.Question)
	}

	late := dialHub(t, srv.URL)
	if ev := readEvent(t, late); ev.Question != "second" {
		t.Errorf("expected replay of the newest event only, got %q", ev.Question)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 7, "this is..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}
