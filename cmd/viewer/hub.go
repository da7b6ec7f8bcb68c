package main

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ViewerEvent is the union of question and answer events as the browser
// sees them.
type ViewerEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Timestamp   int64  `json:"timestamp"`
	Index       int    `json:"index"`
	UtteranceID string `json:"utteranceId"`
	Question    string `json:"question"`
	Answer      string `json:"answer,omitempty"`
	Status      string `json:"status,omitempty"`
	LatencyMs   int64  `json:"latencyMs,omitempty"`
}

// Hub fans events out to WebSocket clients. The client set is owned by the
// run goroutine. Recent events are replayed to clients that join late.
type Hub struct {
	clients    map[*websocket.Conn]bool
	recent     []ViewerEvent
	keep       int
	broadcast  chan ViewerEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func newHub(keep int) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		keep:       keep,
		broadcast:  make(chan ViewerEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
			}
			return

		case conn := <-h.register:
			h.clients[conn] = true
			for _, ev := range h.recent {
				if err := conn.WriteJSON(ev); err != nil {
					h.drop(conn)
					break
				}
			}
			log.Info().Int("clients", len(h.clients)).Msg("Client connected")

		case conn := <-h.unregister:
			if h.clients[conn] {
				h.drop(conn)
				log.Info().Int("clients", len(h.clients)).Msg("Client disconnected")
			}

		case ev := <-h.broadcast:
			h.recent = append(h.recent, ev)
			if len(h.recent) > h.keep {
				h.recent = h.recent[len(h.recent)-h.keep:]
			}
			for conn := range h.clients {
				if err := conn.WriteJSON(ev); err != nil {
					log.Warn().Err(err).Msg("Write error")
					h.drop(conn)
				}
			}
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	delete(h.clients, conn)
	conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade error")
			return
		}
		hub.register <- conn

		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
