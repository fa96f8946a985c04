package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/uniquery/uniquery/internal/query"
)

func TestQueryEndpointReturnsResults(t *testing.T) {
	cfg := loadConfig(t, nil)
	engine := &fakeQueryEngine{result: query.Result{Columns: []string{"c"}, Rows: [][]any{{int64(2)}}, RowCount: 1, Duration: 20 * time.Millisecond}}
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, engine)})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql":"SELECT COUNT(*) AS c FROM course","row_limit":10}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeJSON(t, rr)
	if body["row_count"] != float64(1) {
		t.Fatalf("row_count = %v", body["row_count"])
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["duration_ms"] != float64(20) {
		t.Fatalf("stats = %v", body["stats"])
	}
	if len(engine.requests) != 1 || engine.requests[0].RowLimit != 10 {
		t.Fatalf("engine requests = %+v", engine.requests)
	}
}

func TestQueryEndpointRejectsInvalidSQL(t *testing.T) {
	cfg := loadConfig(t, nil)
	engine := &fakeQueryEngine{}
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, engine)})

	tests := []struct {
		sql    string
		reason string
	}{
		{sql: "DROP TABLE student", reason: "disallowed_statement"},
		{sql: "SELECT * FROM nonexistent_table", reason: "unknown_table"},
		{sql: "SELECT salary FROM student", reason: "unknown_column"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql":"`+tc.sql+`"}`)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.sql, rr.Code)
		}
		body := decodeJSON(t, rr)
		if body["error_code"] != "SQL_REJECTED" {
			t.Fatalf("%s: error_code = %v", tc.sql, body["error_code"])
		}
		details, _ := body["context"].(map[string]any)
		violations, _ := details["violations"].([]any)
		if len(violations) == 0 {
			t.Fatalf("%s: violations = %v", tc.sql, details["violations"])
		}
		if first := violations[0].(map[string]any); first["reason"] != tc.reason {
			t.Fatalf("%s: reason = %v, want %s", tc.sql, first["reason"], tc.reason)
		}
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine called %d times", len(engine.requests))
	}
}

func TestQueryEndpointRequiresSQL(t *testing.T) {
	cfg := loadConfig(t, nil)
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, &fakeQueryEngine{})})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql":" "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeJSON(t, rr)["error_code"]; got != "SQL_REQUIRED" {
		t.Fatalf("error_code = %v", got)
	}
}

func TestQueryEndpointReportsExecutionFailure(t *testing.T) {
	cfg := loadConfig(t, nil)
	engine := &fakeQueryEngine{err: &query.ExecutionError{SQL: "SELECT * FROM takes", Err: errors.New("permission denied for table takes")}}
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, engine)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql":"SELECT * FROM takes"}`)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeJSON(t, rr)
	if body["message"] != "query executed but failed: permission denied for table takes" {
		t.Fatalf("message = %v", body["message"])
	}
}
