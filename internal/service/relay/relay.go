// Package relay drains session updates to the event publisher and the
// history store.
package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"interview-assistant/internal/models"
	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/session"
)

// Publisher is implemented by events.Publisher.
type Publisher interface {
	PublishQuestion(ctx context.Context, event models.QuestionEvent) error
	PublishAnswer(ctx context.Context, event models.AnswerEvent) error
}

// History is implemented by store.Store.
type History interface {
	SaveEntry(ctx context.Context, sessionID string, e session.Entry) error
}

// Relay forwards updates of one session at a time. Either sink may be nil.
type Relay struct {
	publisher Publisher
	history   History
	principal string
	now       func() time.Time
}

func New(publisher Publisher, history History, principal string) *Relay {
	return &Relay{
		publisher: publisher,
		history:   history,
		principal: principal,
		now:       time.Now,
	}
}

// Run forwards updates until the session's queue is closed or ctx is done.
// Sink failures are logged and do not stop the relay. Once the queue is
// closed the final snapshot is written to history, which repairs entries
// whose updates were dropped.
func (r *Relay) Run(ctx context.Context, sess *session.Session) {
	logger := logging.WithSession(sess.ID()).With().Str("component", "relay").Logger()

	updates := sess.Updates()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				r.reconcile(context.WithoutCancel(ctx), sess, logger)
				return
			}
			r.forward(ctx, u, logger)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) forward(ctx context.Context, u session.Update, logger zerolog.Logger) {
	switch u.Kind {
	case session.UpdateQuestion:
		if r.publisher != nil {
			if err := r.publisher.PublishQuestion(ctx, r.questionEvent(u)); err != nil {
				logger.Error().Err(err).Int("index", u.Entry.Index).Msg("Failed to publish question")
			}
		}
	case session.UpdateAnswer:
		if r.publisher != nil {
			if err := r.publisher.PublishAnswer(ctx, r.answerEvent(u)); err != nil {
				logger.Error().Err(err).Int("index", u.Entry.Index).Msg("Failed to publish answer")
			}
		}
	default:
		logger.Debug().Int("selected", u.Selected).Msg("Selection changed")
		return
	}

	if r.history != nil {
		if err := r.history.SaveEntry(ctx, u.SessionID, u.Entry); err != nil {
			logger.Error().Err(err).Int("index", u.Entry.Index).Msg("Failed to save entry")
		}
	}
}

func (r *Relay) reconcile(ctx context.Context, sess *session.Session, logger zerolog.Logger) {
	if r.history == nil || sess.Dropped() == 0 {
		return
	}
	snap := sess.Snapshot()
	for _, e := range snap.Entries {
		if err := r.history.SaveEntry(ctx, snap.ID, e); err != nil {
			logger.Error().Err(err).Int("index", e.Index).Msg("Failed to save entry")
		}
	}
	logger.Info().Int64("dropped", sess.Dropped()).Int("entries", len(snap.Entries)).Msg("History reconciled from snapshot")
}

func (r *Relay) questionEvent(u session.Update) models.QuestionEvent {
	return models.QuestionEvent{
		EventType:   models.EventTypeQuestion,
		SessionID:   u.SessionID,
		Principal:   r.principal,
		Timestamp:   r.now().UnixMilli(),
		Index:       u.Entry.Index,
		UtteranceID: u.Entry.UtteranceID,
		Question:    u.Entry.Question,
	}
}

func (r *Relay) answerEvent(u session.Update) models.AnswerEvent {
	return models.AnswerEvent{
		EventType:   models.EventTypeAnswer,
		SessionID:   u.SessionID,
		Principal:   r.principal,
		Timestamp:   r.now().UnixMilli(),
		Index:       u.Entry.Index,
		UtteranceID: u.Entry.UtteranceID,
		Question:    u.Entry.Question,
		Answer:      u.Entry.Answer,
		Status:      string(u.Entry.Status),
		LatencyMs:   u.Entry.AnsweredAt.Sub(u.Entry.AskedAt).Milliseconds(),
	}
}
