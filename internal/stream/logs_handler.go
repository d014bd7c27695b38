package stream

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"dirwatch/internal/logging"
)

const defaultLogsLimit = 100

// logsHandler returns recent log entries as JSON, oldest first.
// Query parameters: level (minimum level) and limit.
type logsHandler struct {
	buffer *logging.LogBuffer
}

func (h *logsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()

	var minLevel logging.Level
	if raw := strings.TrimSpace(query.Get("level")); raw != "" {
		level, ok := logging.ParseLevel(raw)
		if !ok {
			http.Error(w, "unknown level", http.StatusBadRequest)
			return
		}
		minLevel = level
	}
	limit := defaultLogsLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries := h.buffer.Recent(minLevel, limit)
	if entries == nil {
		entries = []logging.LogEntry{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(entries)
}
