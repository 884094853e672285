package api

import (
	"log/slog"
	"net/http"
	"time"
)

// statusHandler reports service status and current analysis load.
type statusHandler struct {
	runner AnalysisRunner
	logger *slog.Logger
}

// getStatus handles GET /api/v1/status.
func (h *statusHandler) getStatus(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "running",
		"active_runs": h.runner.ActiveCount(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, h.logger)
}
