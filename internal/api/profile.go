package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitalsync/healthd/internal/memory"
	"github.com/vitalsync/healthd/internal/profile"
)

// profileHandler serves profile registry lookups.
type profileHandler struct {
	registry ProfileRegistry
	store    MemoryStore
	logger   *slog.Logger
}

// profileItem is the wire representation of a profile, annotated with its
// analysis memory state.
type profileItem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	HasMemory     bool      `json:"has_memory"`
	TotalAnalyses int       `json:"total_analyses"`
}

// getProfile handles GET /api/v1/profiles/{profileID}.
func (h *profileHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("profileID")
	if profileID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_profile_id", "profile ID is required", h.logger)
		return
	}

	p, err := h.registry.Get(r.Context(), profileID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			WriteError(w, http.StatusNotFound, "unknown_profile", "profile does not exist", h.logger)
			return
		}
		h.logger.Error("reading profile", "error", err, "profile_id", profileID)
		WriteError(w, http.StatusInternalServerError, "read_failed", "failed to read profile", h.logger)
		return
	}

	item := profileItem{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}

	rec, err := h.store.Read(r.Context(), profileID)
	switch {
	case err == nil:
		item.HasMemory = true
		item.TotalAnalyses = rec.TotalAnalyses
	case errors.Is(err, memory.ErrNoMemory):
		// No analyses yet.
	default:
		h.logger.Error("reading memory for profile", "error", err, "profile_id", profileID)
		WriteError(w, http.StatusInternalServerError, "read_failed", "failed to read profile", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, item, h.logger)
}
