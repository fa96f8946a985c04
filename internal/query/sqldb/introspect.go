package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/uniquery/uniquery/internal/schema"
)

const (
	informationSchemaColumnsSQL = `SELECT table_name, column_name FROM information_schema.columns WHERE table_schema = current_schema()`
	mysqlColumnsSQL             = `SELECT table_name, column_name FROM information_schema.columns WHERE table_schema = DATABASE()`
	sqliteColumnsSQL            = `SELECT m.name, p.name FROM sqlite_master AS m JOIN pragma_table_info(m.name) AS p WHERE m.type IN ('table', 'view')`
)

func columnsQuery(driver string) (string, error) {
	switch driver {
	case "pgx", "duckdb":
		return informationSchemaColumnsSQL, nil
	case "mysql":
		return mysqlColumnsSQL, nil
	case "sqlite":
		return sqliteColumnsSQL, nil
	default:
		return "", fmt.Errorf("schema introspection is not supported for driver %q", driver)
	}
}

// LiveColumns reads the tables and columns visible to the connection.
func (e *Engine) LiveColumns(ctx context.Context) (schema.LiveColumns, error) {
	statement, err := columnsQuery(e.db.DriverName())
	if err != nil {
		return nil, err
	}
	rows, err := e.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	live := schema.LiveColumns{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		key := strings.ToLower(table)
		live[key] = append(live[key], strings.ToLower(column))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	return live, nil
}

// CheckSchema compares the registry description with the live database.
func (e *Engine) CheckSchema(ctx context.Context, desc schema.Description) (schema.Drift, error) {
	live, err := e.LiveColumns(ctx)
	if err != nil {
		return schema.Drift{}, err
	}
	return desc.Diff(live), nil
}
