package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/uniquery/uniquery/internal/history"
)

func handleListHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requirePipeline(deps, w, r) {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}

	entries, err := deps.Pipeline.History(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list history", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func handleGetHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requirePipeline(deps, w, r) {
		return
	}

	id := r.PathValue("id")
	entry, err := deps.Pipeline.HistoryEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "HISTORY_NOT_FOUND", "history entry was not found", false, map[string]any{"id": id})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to load history entry", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
