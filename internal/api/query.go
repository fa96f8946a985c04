package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/query"
)

type queryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type queryResponse struct {
	Columns  []string       `json:"columns"`
	Rows     [][]any        `json:"rows"`
	RowCount int            `json:"row_count"`
	Stats    map[string]any `json:"stats"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requirePipeline(deps, w, r) {
		return
	}

	var request queryRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	rowLimit, ok := resolveRowLimit(deps, w, r, request.RowLimit)
	if !ok {
		return
	}

	result, err := deps.Pipeline.Execute(r.Context(), request.SQL, rowLimit)
	if err != nil {
		var rejected *sqlcheck.RejectedError
		if errors.As(err, &rejected) {
			writeError(r.Context(), w, http.StatusBadRequest, "SQL_REJECTED", rejected.Error(), false, map[string]any{"violations": rejected.Violations})
			return
		}
		if execErr, ok := query.AsExecutionError(err); ok {
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "QUERY_EXECUTION_FAILED", execErr.Error(), false, map[string]any{"sql": request.SQL})
			return
		}
		writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: result.RowCount,
		Stats: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
		},
	})
}
