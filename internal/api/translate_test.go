package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/uniquery/uniquery/internal/query"
)

func TestTranslateEndpointReturnsFallbackSQL(t *testing.T) {
	cfg := loadConfig(t, nil)
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, &fakeQueryEngine{})})

	req := httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(`{"question":"Quantos estudantes há em ciência da computação?"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeJSON(t, rr)
	if body["sql"] != "SELECT COUNT(*) FROM student WHERE dept_name = 'Computer Science'" {
		t.Fatalf("sql = %v", body["sql"])
	}
	if body["source"] != "FALLBACK" || body["valid"] != true {
		t.Fatalf("source = %v, valid = %v", body["source"], body["valid"])
	}
	question, _ := body["question"].(map[string]any)
	if question["language"] != "pt" {
		t.Fatalf("question = %v", body["question"])
	}
	if body["model_outcome"] != "unavailable" {
		t.Fatalf("model_outcome = %v", body["model_outcome"])
	}
}

func TestTranslateEndpointValidatesInput(t *testing.T) {
	cfg := loadConfig(t, nil)
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, &fakeQueryEngine{})})

	tests := []struct {
		body string
		code string
	}{
		{body: `{"question":"  "}`, code: "QUESTION_REQUIRED"},
		{body: `{"question":"list students","language":"fr"}`, code: "INVALID_LANGUAGE"},
		{body: `{"prompt":"list students"}`, code: "INVALID_JSON"},
		{body: `not json`, code: "INVALID_JSON"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(tc.body)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", tc.body, rr.Code)
		}
		if got := decodeJSON(t, rr)["error_code"]; got != tc.code {
			t.Fatalf("body %s: error_code = %v, want %s", tc.body, got, tc.code)
		}
	}
}

func TestAskEndpointReturnsRows(t *testing.T) {
	cfg := loadConfig(t, nil)
	engine := &fakeQueryEngine{result: query.Result{Columns: []string{"name"}, Rows: [][]any{{"Einstein"}}, RowCount: 1}}
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, engine), MaxRowLimit: 100})

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"Who has the highest salary?","language":"en","row_limit":5000}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if len(engine.requests) != 1 {
		t.Fatalf("engine requests = %d", len(engine.requests))
	}
	if got := engine.requests[0]; got.SQL != "SELECT name FROM instructor ORDER BY salary DESC LIMIT 1" || got.RowLimit != 100 {
		t.Fatalf("request = %+v", got)
	}
	body := decodeJSON(t, rr)
	result, _ := body["result"].(map[string]any)
	if result["row_count"] != float64(1) {
		t.Fatalf("result = %v", body["result"])
	}
	translation, _ := body["translation"].(map[string]any)
	if translation["source"] != "FALLBACK" {
		t.Fatalf("translation = %v", body["translation"])
	}
	if body["history_id"] == "" || body["history_id"] == nil {
		t.Fatalf("history_id = %v", body["history_id"])
	}
}

func TestAskEndpointReportsExecutionFailure(t *testing.T) {
	cfg := loadConfig(t, nil)
	engine := &fakeQueryEngine{err: &query.ExecutionError{SQL: "SELECT name FROM instructor ORDER BY salary DESC LIMIT 1", Err: errors.New("canceling statement due to statement timeout")}}
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, engine)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"Who has the highest salary?"}`)))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeJSON(t, rr)
	if body["error_code"] != "QUERY_EXECUTION_FAILED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if body["message"] != "query executed but failed: canceling statement due to statement timeout" {
		t.Fatalf("message = %v", body["message"])
	}
	details, _ := body["context"].(map[string]any)
	if details["sql"] != "SELECT name FROM instructor ORDER BY salary DESC LIMIT 1" {
		t.Fatalf("context = %v", body["context"])
	}
}

func TestAskEndpointWithoutEngine(t *testing.T) {
	cfg := loadConfig(t, nil)
	svc := newTestService(t, nil)
	h := NewHandler(cfg, Dependencies{Pipeline: svc})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"list students"}`)))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeJSON(t, rr)["error_code"]; got != "QUERY_NOT_CONFIGURED" {
		t.Fatalf("error_code = %v", got)
	}
}

func TestAskEndpointRejectsNegativeRowLimit(t *testing.T) {
	cfg := loadConfig(t, nil)
	h := NewHandler(cfg, Dependencies{Pipeline: newTestService(t, &fakeQueryEngine{})})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"list students","row_limit":-1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeJSON(t, rr)["error_code"]; got != "INVALID_ROW_LIMIT" {
		t.Fatalf("error_code = %v", got)
	}
}
