// Package profile reads the profile registry and the longitudinal health
// tables (scores, archetypes, biomarkers). healthd never writes these
// tables; they are populated by the upstream ingestion pipeline.
package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a registry row.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Score is one scored health metric observation.
type Score struct {
	ID            uuid.UUID      `json:"id"`
	ProfileID     string         `json:"profile_id"`
	Type          string         `json:"type"`
	Score         float64        `json:"score"`
	Data          map[string]any `json:"data"`
	ScoreDateTime time.Time      `json:"score_date_time"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Archetype is a behavioral classification valid over a time window.
type Archetype struct {
	ID            uuid.UUID      `json:"id"`
	ProfileID     string         `json:"profile_id"`
	Name          string         `json:"name"`
	Periodicity   string         `json:"periodicity"`
	Value         string         `json:"value"`
	Data          map[string]any `json:"data"`
	StartDateTime time.Time      `json:"start_date_time"`
	EndDateTime   time.Time      `json:"end_date_time"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Biomarker is a measured physiological signal over a time window.
type Biomarker struct {
	ID            uuid.UUID      `json:"id"`
	ProfileID     string         `json:"profile_id"`
	Category      string         `json:"category"`
	Type          string         `json:"type"`
	Data          map[string]any `json:"data"`
	StartDateTime time.Time      `json:"start_date_time"`
	EndDateTime   time.Time      `json:"end_date_time"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DateRange is the trailing window a HealthContext was fetched over.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Days  int       `json:"days"`
}

// HealthContext bundles everything known about a profile within a trailing
// window, ordered newest first. Empty slices mean no data in the window,
// which is a valid state, not an error.
type HealthContext struct {
	ProfileID  string      `json:"profile_id"`
	Scores     []Score     `json:"scores"`
	Archetypes []Archetype `json:"archetypes"`
	Biomarkers []Biomarker `json:"biomarkers"`
	DateRange  DateRange   `json:"date_range"`
}
