// Package store keeps the question and answer history of past sessions in
// SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"interview-assistant/internal/session"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord is one recording session.
type SessionRecord struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	StartedAt time.Time  `gorm:"index" json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Entries   int        `gorm:"-" json:"entries"`
}

// EntryRecord is one question and its answer. (SessionID, Position) is
// unique so repeated saves of the same entry update it in place.
type EntryRecord struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"size:64;uniqueIndex:idx_session_position"`
	Position    int    `gorm:"uniqueIndex:idx_session_position"`
	UtteranceID string `gorm:"size:128"`
	Question    string
	Answer      string
	Status      string `gorm:"size:16"`
	AskedAt     time.Time
	AnsweredAt  time.Time
}

// Store is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema. Any
// DSN accepted by the sqlite driver works, including in-memory ones.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && !isMemory(path) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&SessionRecord{}, &EntryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// StartSession records a new session. Saving an existing ID is a no-op.
func (s *Store) StartSession(ctx context.Context, id string, startedAt time.Time) error {
	rec := SessionRecord{ID: id, StartedAt: startedAt}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// EndSession stamps the end time of a session.
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Update("ended_at", endedAt)
	if res.Error != nil {
		return fmt.Errorf("end session %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// SaveEntry inserts or updates an entry of a session.
func (s *Store) SaveEntry(ctx context.Context, sessionID string, e session.Entry) error {
	rec := EntryRecord{
		SessionID:   sessionID,
		Position:    e.Index,
		UtteranceID: e.UtteranceID,
		Question:    e.Question,
		Answer:      e.Answer,
		Status:      string(e.Status),
		AskedAt:     e.AskedAt,
		AnsweredAt:  e.AnsweredAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "position"}},
		DoUpdates: clause.AssignmentColumns([]string{"question", "answer", "status", "answered_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save entry %d of %s: %w", e.Index, sessionID, err)
	}
	return nil
}

// ListSessions returns the most recent sessions first, with entry counts.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var sessions []SessionRecord
	if err := s.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	for i := range sessions {
		var n int64
		if err := s.db.WithContext(ctx).Model(&EntryRecord{}).Where("session_id = ?", sessions[i].ID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count entries of %s: %w", sessions[i].ID, err)
		}
		sessions[i].Entries = int(n)
	}
	return sessions, nil
}

// ListEntries returns a session's entries in question order.
func (s *Store) ListEntries(ctx context.Context, sessionID string) ([]session.Entry, error) {
	var found int64
	if err := s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", sessionID).Count(&found).Error; err != nil {
		return nil, fmt.Errorf("find session %s: %w", sessionID, err)
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var recs []EntryRecord
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("position asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", sessionID, err)
	}

	entries := make([]session.Entry, len(recs))
	for i, r := range recs {
		entries[i] = session.Entry{
			Index:       r.Position,
			UtteranceID: r.UtteranceID,
			Question:    r.Question,
			Answer:      r.Answer,
			Status:      session.Status(r.Status),
			AskedAt:     r.AskedAt,
			AnsweredAt:  r.AnsweredAt,
		}
	}
	return entries, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
