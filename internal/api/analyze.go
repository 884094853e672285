package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vitalsync/healthd/internal/analysis"
	"github.com/vitalsync/healthd/internal/profile"
	"github.com/vitalsync/healthd/internal/runner"
	"github.com/vitalsync/healthd/internal/sse"
)

// AnalysisRunner starts analysis subprocesses and reports load.
type AnalysisRunner interface {
	Run(ctx context.Context, profileID, archetype string) (<-chan runner.Event, error)
	ActiveCount() int
}

// ProfileRegistry is the slice of the registry the API needs.
type ProfileRegistry interface {
	Exists(ctx context.Context, profileID string) (bool, error)
	Get(ctx context.Context, profileID string) (*profile.Profile, error)
}

// analyzeHandler streams analysis runs over SSE.
type analyzeHandler struct {
	runner   AnalysisRunner
	registry ProfileRegistry
	logger   *slog.Logger
}

// analyzeRequest is the body for POST /api/v1/analyze.
type analyzeRequest struct {
	UserID    string `json:"user_id"`
	Archetype string `json:"archetype"`
}

// analyze handles POST /api/v1/analyze: validates the request, spawns the
// analysis subprocess, and relays its progress as SSE events. The stream
// always ends in exactly one complete or error event.
func (h *analyzeHandler) analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4096)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "missing_user_id", "user_id is required", h.logger)
		return
	}
	if !analysis.ValidArchetype(req.Archetype) {
		WriteError(w, http.StatusBadRequest, "invalid_archetype", "unknown archetype", h.logger)
		return
	}

	exists, err := h.registry.Exists(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("checking profile", "error", err, "profile_id", req.UserID)
		WriteError(w, http.StatusInternalServerError, "registry_failed", "failed to check profile", h.logger)
		return
	}
	if !exists {
		WriteError(w, http.StatusNotFound, "unknown_profile", "profile does not exist", h.logger)
		return
	}

	events, err := h.runner.Run(r.Context(), req.UserID, req.Archetype)
	if err != nil {
		h.logger.Error("starting analysis run", "error", err, "profile_id", req.UserID)
		WriteError(w, http.StatusInternalServerError, "run_failed", "failed to start analysis", h.logger)
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("initializing event stream", "error", err)
		WriteError(w, http.StatusInternalServerError, "stream_failed", "streaming not supported", h.logger)
		return
	}

	h.logger.Info("analysis stream started",
		"profile_id", req.UserID, "archetype", req.Archetype)

	for ev := range events {
		if err := stream.WriteJSON(r.Context(), string(ev.Type), ev); err != nil {
			if errors.Is(r.Context().Err(), context.Canceled) {
				h.logger.Debug("client disconnected", "profile_id", req.UserID)
			} else {
				h.logger.Warn("writing event failed", "error", err, "profile_id", req.UserID)
			}
			// The context cancel propagated by the client disconnect kills
			// the subprocess; drain the channel so the runner goroutine exits.
			for range events {
			}
			return
		}
	}
}
