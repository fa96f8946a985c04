package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const selectColumns = `id, question, language, sql_text, source, model_outcome, status, row_count, error_message, duration_ms, created_at`

// Repository stores entries through sqlx. Queries are written with ? and
// rebound to the driver's placeholder style.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if entry.Status == "" {
		entry.Status = StatusTranslated
	}

	query := r.db.Rebind(`
INSERT INTO translation_history (` + selectColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Question,
		entry.Language,
		entry.SQL,
		entry.Source,
		entry.ModelOutcome,
		string(entry.Status),
		entry.RowCount,
		entry.Error,
		entry.DurationMs,
		entry.CreatedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("record history entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	query := r.db.Rebind(`
SELECT ` + selectColumns + `
FROM translation_history
ORDER BY created_at DESC, id DESC
LIMIT ?`)

	entries := make([]Entry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	return entries, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrNotFound
	}
	query := r.db.Rebind(`
SELECT ` + selectColumns + `
FROM translation_history
WHERE id = ?`)

	var entry Entry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}
