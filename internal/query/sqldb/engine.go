// Package sqldb executes validated SQL against the configured relational
// database through sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"

	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/observability"
	"github.com/uniquery/uniquery/internal/query"
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	RowLimit        int
}

// DriverName maps a configured database kind to its registered database/sql
// driver.
func DriverName(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "duckdb":
		return "duckdb", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", kind)
	}
}

type Engine struct {
	db           *sqlx.DB
	readOnlyTx   bool
	wrapLimit    bool
	queryTimeout time.Duration
	rowLimit     int
}

type Options struct {
	QueryTimeout time.Duration
	// RowLimit applies when a request does not carry its own limit.
	RowLimit int
}

func Open(ctx context.Context, cfg Config) (*Engine, error) {
	driver, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	// An empty duckdb DSN opens an in-memory database.
	if strings.TrimSpace(cfg.DSN) == "" && driver != "duckdb" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}

	return NewEngine(db, Options{QueryTimeout: cfg.QueryTimeout, RowLimit: cfg.RowLimit}), nil
}

func NewEngine(db *sqlx.DB, opts Options) *Engine {
	return &Engine{
		db:           db,
		readOnlyTx:   supportsReadOnlyTx(db.DriverName()),
		wrapLimit:    supportsLimitWrap(db.DriverName()),
		queryTimeout: opts.QueryTimeout,
		rowLimit:     opts.RowLimit,
	}
}

// duckdb and sqlite reject sql.TxOptions.ReadOnly.
func supportsReadOnlyTx(driver string) bool {
	switch driver {
	case "pgx", "mysql":
		return true
	default:
		return false
	}
}

// MySQL rejects derived tables with duplicate column names, which SELECT *
// over a join produces, so its row limit is applied while scanning instead.
func supportsLimitWrap(driver string) bool {
	return driver != "mysql"
}

func (e *Engine) DB() *sqlx.DB {
	return e.db
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// Execute runs the statement inside a transaction that is always rolled back.
// Comments are stripped before the row limit is applied.
func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(sqlcheck.StripComments(request.SQL))
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	limit := request.RowLimit
	if limit <= 0 {
		limit = e.rowLimit
	}
	if limit > 0 && e.wrapLimit {
		sqlText = fmt.Sprintf("SELECT * FROM (\n%s\n) AS q LIMIT %d", sqlText, limit)
	}
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.run(ctx, sqlText, limit)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveQueryExecution("error", elapsed)
		return query.Result{}, &query.ExecutionError{SQL: request.SQL, Err: err}
	}
	observability.ObserveQueryExecution("ok", elapsed)
	result.Duration = elapsed
	return result, nil
}

func (e *Engine) run(ctx context.Context, sqlText string, limit int) (query.Result, error) {
	tx, err := e.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: e.readOnlyTx})
	if err != nil {
		return query.Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryxContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		if limit > 0 && len(resultRows) >= limit {
			break
		}
		values, err := rows.SliceScan()
		if err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, err
	}

	return query.Result{Columns: columns, Rows: resultRows, RowCount: len(resultRows)}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
