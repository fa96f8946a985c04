package query

import (
	"context"
	"errors"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	RowCount int           `json:"row_count"`
	Duration time.Duration `json:"-"`
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

// ExecutionError is a failure reported by the database after the statement
// was accepted by the validator.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return "query executed but failed: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func AsExecutionError(err error) (*ExecutionError, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr, true
	}
	return nil, false
}
