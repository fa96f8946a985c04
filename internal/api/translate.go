package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/pipeline"
	"github.com/uniquery/uniquery/internal/query"
)

type translateRequest struct {
	Question string `json:"question"`
	Language string `json:"language"`
}

type askRequest struct {
	Question string `json:"question"`
	Language string `json:"language"`
	RowLimit int    `json:"row_limit"`
}

type askResponse struct {
	pipeline.Answer
	Stats map[string]any `json:"stats,omitempty"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requirePipeline(deps, w, r) {
		return
	}
	desc := deps.Pipeline.Schema()
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":      desc.Tables,
		"fingerprint": desc.Fingerprint(),
		"prompt_text": desc.Linearize(),
	})
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requirePipeline(deps, w, r) {
		return
	}
	var req translateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	language, ok := parseQuestion(w, r, req.Question, req.Language)
	if !ok {
		return
	}

	translation, err := deps.Pipeline.Translate(r.Context(), req.Question, language)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, translation)
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requirePipeline(deps, w, r) {
		return
	}
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	language, ok := parseQuestion(w, r, req.Question, req.Language)
	if !ok {
		return
	}
	rowLimit, ok := resolveRowLimit(deps, w, r, req.RowLimit)
	if !ok {
		return
	}

	answer, err := deps.Pipeline.Ask(r.Context(), req.Question, language, rowLimit)
	if err != nil {
		if execErr, ok := query.AsExecutionError(err); ok {
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "QUERY_EXECUTION_FAILED", execErr.Error(), false, map[string]any{
				"sql":        answer.Translation.SQL,
				"source":     answer.Translation.Source,
				"history_id": answer.HistoryID,
			})
			return
		}
		writePipelineError(w, r, err)
		return
	}

	response := askResponse{Answer: answer}
	if answer.Result != nil {
		response.Stats = map[string]any{
			"translation_ms": answer.Translation.DurationMs,
			"execution_ms":   answer.Result.Duration.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func parseQuestion(w http.ResponseWriter, r *http.Request, question, rawLanguage string) (nl2sql.Language, bool) {
	if strings.TrimSpace(question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	language, err := nl2sql.ParseLanguage(rawLanguage)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LANGUAGE", err.Error(), false, map[string]any{"supported": []string{"pt", "en"}})
		return "", false
	}
	return language, true
}

func resolveRowLimit(deps Dependencies, w http.ResponseWriter, r *http.Request, rowLimit int) (int, bool) {
	if rowLimit < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROW_LIMIT", "row_limit must be >= 0", false, nil)
		return 0, false
	}
	if deps.MaxRowLimit > 0 && rowLimit > deps.MaxRowLimit {
		rowLimit = deps.MaxRowLimit
	}
	return rowLimit, true
}

func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", err.Error(), false, nil)
	case errors.Is(err, pipeline.ErrEmptyStatement):
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", err.Error(), false, nil)
	case errors.Is(err, pipeline.ErrNoQueryEngine):
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", err.Error(), false, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "request failed", true, map[string]any{"details": err.Error()})
	}
}
