// Package http serves the recording control API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"interview-assistant/internal/app"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/session"
	"interview-assistant/internal/store"
)

// History is the read side of the session store.
type History interface {
	ListSessions(ctx context.Context, limit int) ([]store.SessionRecord, error)
	ListEntries(ctx context.Context, sessionID string) ([]session.Entry, error)
}

type sessionStatus struct {
	Running   bool              `json:"running"`
	Ready     bool              `json:"ready"`
	Threshold string            `json:"threshold,omitempty"`
	Session   *session.Snapshot `json:"session,omitempty"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router. history may be nil.
func NewRouter(application *app.Application, history History) http.Handler {
	h := &handlers{recorder: application.Recorder, history: history}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("calibrating"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.status)
		r.Post("/session/start", h.start)
		r.Post("/session/stop", h.stop)
		r.Get("/entries", h.entries)
		r.Put("/entries/selected", h.selectEntry)
		r.Get("/history", h.listHistory)
		r.Get("/history/{sessionID}", h.historyEntries)
	})

	return r
}

type handlers struct {
	recorder *app.Recorder
	history  History
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	st := sessionStatus{Running: h.recorder.Running(), Ready: h.recorder.Ready()}
	if t, ok := h.recorder.Threshold(); ok {
		st.Threshold = t.String()
	}
	if sess, ok := h.recorder.Session(); ok {
		snap := sess.Snapshot()
		st.Session = &snap
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.recorder.Start(r.Context())
	switch {
	case errors.Is(err, app.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, app.ErrNotReady), errors.Is(err, audio.ErrSourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	snap, err := h.recorder.Stop(r.Context())
	switch {
	case errors.Is(err, app.ErrNotRunning):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		// Timed out waiting for answers; the recording still finishes.
		writeJSON(w, http.StatusAccepted, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) entries(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.recorder.Session()
	if !ok {
		writeJSON(w, http.StatusOK, []session.Entry{})
		return
	}
	writeJSON(w, http.StatusOK, sess.Entries())
}

func (h *handlers) selectEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.recorder.Session()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no session"))
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"index": n}`))
		return
	}
	if err := sess.Select(*req.Index); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, errors.New("history disabled"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	sessions, err := h.history.ListSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handlers) historyEntries(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, errors.New("history disabled"))
		return
	}

	entries, err := h.history.ListEntries(r.Context(), chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
