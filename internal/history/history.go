// Package history records answered questions in the translation_history
// table.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("history: not found")

type Status string

const (
	StatusTranslated Status = "translated"
	StatusExecuted   Status = "executed"
	StatusFailed     Status = "failed"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Entry struct {
	ID           string    `db:"id" json:"id"`
	Question     string    `db:"question" json:"question"`
	Language     string    `db:"language" json:"language"`
	SQL          string    `db:"sql_text" json:"sql"`
	Source       string    `db:"source" json:"source"`
	ModelOutcome string    `db:"model_outcome" json:"model_outcome"`
	Status       Status    `db:"status" json:"status"`
	RowCount     int       `db:"row_count" json:"row_count"`
	Error        string    `db:"error_message" json:"error,omitempty"`
	DurationMs   int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Store interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
}

// Nop drops every entry. It is used when history is disabled.
type Nop struct{}

func (Nop) Record(_ context.Context, entry Entry) (Entry, error) { return entry, nil }

func (Nop) List(context.Context, int) ([]Entry, error) { return []Entry{}, nil }

func (Nop) Get(context.Context, string) (Entry, error) { return Entry{}, ErrNotFound }

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
