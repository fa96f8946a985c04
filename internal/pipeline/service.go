// Package pipeline ties translation, execution and history together for the
// API, MCP and CLI surfaces.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uniquery/uniquery/internal/history"
	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/nl2sql/hybrid"
	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/query"
	"github.com/uniquery/uniquery/internal/schema"
)

var (
	ErrEmptyQuestion  = errors.New("question is required")
	ErrNoQueryEngine  = errors.New("query engine is not configured")
	ErrEmptyStatement = errors.New("sql is required")
)

type Translator interface {
	Translate(ctx context.Context, question nl2sql.Question, desc schema.Description) hybrid.Translation
}

type Service struct {
	Registry   *schema.Registry
	Translator Translator
	// Engine may be nil; Ask and Execute then return ErrNoQueryEngine.
	Engine       query.Engine
	HistoryStore history.Store
	Logger       *slog.Logger
	Clock        func() time.Time
}

type Answer struct {
	Translation hybrid.Translation `json:"translation"`
	Result      *query.Result      `json:"result,omitempty"`
	HistoryID   string             `json:"history_id,omitempty"`
}

func (s *Service) Schema() schema.Description {
	return s.Registry.Describe()
}

// Translate returns validator-approved SQL for the question. It only fails
// on an empty question.
func (s *Service) Translate(ctx context.Context, text string, language nl2sql.Language) (hybrid.Translation, error) {
	s.ensureDefaults()
	question, err := newQuestion(text, language)
	if err != nil {
		return hybrid.Translation{}, err
	}
	translation := s.Translator.Translate(ctx, question, s.Registry.Describe())
	s.record(ctx, entryFor(translation, history.StatusTranslated))
	return translation, nil
}

// Ask translates the question and runs the resulting SQL. A database failure
// is returned as *query.ExecutionError together with the translation.
func (s *Service) Ask(ctx context.Context, text string, language nl2sql.Language, rowLimit int) (Answer, error) {
	s.ensureDefaults()
	question, err := newQuestion(text, language)
	if err != nil {
		return Answer{}, err
	}
	if s.Engine == nil {
		return Answer{}, ErrNoQueryEngine
	}

	translation := s.Translator.Translate(ctx, question, s.Registry.Describe())
	answer := Answer{Translation: translation}

	result, execErr := s.Engine.Execute(ctx, query.Request{SQL: translation.SQL, RowLimit: rowLimit})
	entry := entryFor(translation, history.StatusExecuted)
	entry.DurationMs += result.Duration.Milliseconds()
	if execErr != nil {
		if _, ok := query.AsExecutionError(execErr); !ok {
			execErr = &query.ExecutionError{SQL: translation.SQL, Err: execErr}
		}
		entry.Status = history.StatusFailed
		entry.Error = execErr.Error()
		s.Logger.WarnContext(ctx, "translated query failed",
			slog.String("sql", translation.SQL),
			slog.String("source", string(translation.Source)),
			slog.Any("error", execErr),
		)
	} else {
		entry.RowCount = result.RowCount
		answer.Result = &result
	}
	answer.HistoryID = s.record(ctx, entry)
	return answer, execErr
}

// Execute validates caller-supplied SQL against the schema before running it.
// Rejections are returned as *sqlcheck.RejectedError.
func (s *Service) Execute(ctx context.Context, sqlText string, rowLimit int) (query.Result, error) {
	s.ensureDefaults()
	if strings.TrimSpace(sqlText) == "" {
		return query.Result{}, ErrEmptyStatement
	}
	if err := sqlcheck.Validate(sqlText, s.Registry.Describe()).Err(); err != nil {
		return query.Result{}, err
	}
	if s.Engine == nil {
		return query.Result{}, ErrNoQueryEngine
	}
	return s.Engine.Execute(ctx, query.Request{SQL: sqlText, RowLimit: rowLimit})
}

func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	s.ensureDefaults()
	entries, err := s.HistoryStore.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (s *Service) HistoryEntry(ctx context.Context, id string) (history.Entry, error) {
	s.ensureDefaults()
	return s.HistoryStore.Get(ctx, id)
}

func (s *Service) ensureDefaults() {
	if s.HistoryStore == nil {
		s.HistoryStore = history.Nop{}
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
}

// record never fails the request; history is best effort.
func (s *Service) record(ctx context.Context, entry history.Entry) string {
	entry.CreatedAt = s.Clock().UTC()
	stored, err := s.HistoryStore.Record(ctx, entry)
	if err != nil {
		s.Logger.WarnContext(ctx, "history record failed", slog.Any("error", err))
		return ""
	}
	return stored.ID
}

func newQuestion(text string, language nl2sql.Language) (nl2sql.Question, error) {
	question := nl2sql.NewQuestion(text, language)
	if question.Text == "" {
		return nl2sql.Question{}, ErrEmptyQuestion
	}
	return question, nil
}

func entryFor(translation hybrid.Translation, status history.Status) history.Entry {
	return history.Entry{
		Question:     translation.Question.Text,
		Language:     string(translation.Question.Language),
		SQL:          translation.SQL,
		Source:       string(translation.Source),
		ModelOutcome: translation.ModelOutcome,
		Status:       status,
		DurationMs:   translation.DurationMs,
	}
}
