package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitalsync/healthd/internal/memory"
)

// MemoryStore is the slice of the memory store the API serves.
type MemoryStore interface {
	Read(ctx context.Context, profileID string) (*memory.Record, error)
	UpdateContext(ctx context.Context, profileID string, updates memory.ContextUpdates) (*memory.Record, error)
}

// memoryHandler holds dependencies for memory API endpoints.
type memoryHandler struct {
	store  MemoryStore
	logger *slog.Logger
}

// memoryItem is the wire representation of a memory record.
type memoryItem struct {
	ProfileID           string          `json:"profile_id"`
	UserPreferences     memory.Document `json:"user_preferences"`
	HealthGoals         memory.Document `json:"health_goals"`
	DietaryRestrictions memory.Document `json:"dietary_restrictions"`
	LifestyleContext    memory.Document `json:"lifestyle_context"`
	MedicalConditions   memory.Document `json:"medical_conditions"`
	LastAnalysisDate    *time.Time      `json:"last_analysis_date,omitempty"`
	LastAnalysisResult  string          `json:"last_analysis_result,omitempty"`
	AnalysisInsights    memory.Document `json:"analysis_insights"`
	LastNutritionPlan   memory.Document `json:"last_nutrition_plan,omitempty"`
	LastRoutinePlan     memory.Document `json:"last_routine_plan,omitempty"`
	NutritionPlanDate   *time.Time      `json:"nutrition_plan_date,omitempty"`
	RoutinePlanDate     *time.Time      `json:"routine_plan_date,omitempty"`
	HealthTrends        memory.Document `json:"health_trends"`
	ImprovementAreas    memory.Document `json:"improvement_areas"`
	SuccessPatterns     memory.Document `json:"success_patterns"`
	TotalAnalyses       int             `json:"total_analyses"`
	MemoryVersion       int             `json:"memory_version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func toMemoryItem(rec *memory.Record) memoryItem {
	return memoryItem{
		ProfileID:           rec.ProfileID,
		UserPreferences:     rec.UserPreferences,
		HealthGoals:         rec.HealthGoals,
		DietaryRestrictions: rec.DietaryRestrictions,
		LifestyleContext:    rec.LifestyleContext,
		MedicalConditions:   rec.MedicalConditions,
		LastAnalysisDate:    rec.LastAnalysisDate,
		LastAnalysisResult:  rec.LastAnalysisResult,
		AnalysisInsights:    rec.AnalysisInsights,
		LastNutritionPlan:   rec.LastNutritionPlan,
		LastRoutinePlan:     rec.LastRoutinePlan,
		NutritionPlanDate:   rec.NutritionPlanDate,
		RoutinePlanDate:     rec.RoutinePlanDate,
		HealthTrends:        rec.HealthTrends,
		ImprovementAreas:    rec.ImprovementAreas,
		SuccessPatterns:     rec.SuccessPatterns,
		TotalAnalyses:       rec.TotalAnalyses,
		MemoryVersion:       rec.MemoryVersion,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

// getMemory handles GET /api/v1/memory/{profileID}.
func (h *memoryHandler) getMemory(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("profileID")
	if profileID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_profile_id", "profile ID is required", h.logger)
		return
	}

	rec, err := h.store.Read(r.Context(), profileID)
	if err != nil {
		if h.mapMemoryError(w, err) {
			return
		}
		h.logger.Error("reading memory", "error", err, "profile_id", profileID)
		WriteError(w, http.StatusInternalServerError, "read_failed", "failed to read memory", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toMemoryItem(rec), h.logger)
}

// updateContextRequest is the body for PATCH /api/v1/memory/{profileID}/context.
// Absent documents leave the stored documents untouched.
type updateContextRequest struct {
	UserPreferences     memory.Document `json:"user_preferences"`
	HealthGoals         memory.Document `json:"health_goals"`
	DietaryRestrictions memory.Document `json:"dietary_restrictions"`
	LifestyleContext    memory.Document `json:"lifestyle_context"`
	MedicalConditions   memory.Document `json:"medical_conditions"`
}

// updateContext handles PATCH /api/v1/memory/{profileID}/context.
func (h *memoryHandler) updateContext(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("profileID")
	if profileID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_profile_id", "profile ID is required", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req updateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	updates := memory.ContextUpdates{
		UserPreferences:     req.UserPreferences,
		HealthGoals:         req.HealthGoals,
		DietaryRestrictions: req.DietaryRestrictions,
		LifestyleContext:    req.LifestyleContext,
		MedicalConditions:   req.MedicalConditions,
	}
	if updates.Empty() {
		WriteError(w, http.StatusBadRequest, "empty_update", "at least one context document is required", h.logger)
		return
	}

	rec, err := h.store.UpdateContext(r.Context(), profileID, updates)
	if err != nil {
		if h.mapMemoryError(w, err) {
			return
		}
		h.logger.Error("updating context", "error", err, "profile_id", profileID)
		WriteError(w, http.StatusInternalServerError, "update_failed", "failed to update context", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toMemoryItem(rec), h.logger)
}

// mapMemoryError translates store sentinels to HTTP statuses. Returns true
// when the error was handled.
func (h *memoryHandler) mapMemoryError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, memory.ErrNoMemory):
		WriteError(w, http.StatusNotFound, "no_memory", "no memory record for this profile", h.logger)
		return true
	case errors.Is(err, memory.ErrUnknownProfile):
		WriteError(w, http.StatusNotFound, "unknown_profile", "profile does not exist", h.logger)
		return true
	case errors.Is(err, memory.ErrVersionConflict):
		WriteError(w, http.StatusConflict, "version_conflict", "concurrent update conflict, retry the request", h.logger)
		return true
	default:
		return false
	}
}
