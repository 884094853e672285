// Package analysis turns a profile's health data and accumulated memory into
// a narrative analysis and structured nutrition and routine plans.
package analysis

import (
	"context"

	"github.com/vitalsync/healthd/internal/memory"
	"github.com/vitalsync/healthd/internal/profile"
)

// Request carries everything an engine needs for one analysis pass.
type Request struct {
	// Health is the profile's data within the trailing window.
	Health *profile.HealthContext

	// MemoryContext is the rendered prior memory (memory.FormatContext).
	MemoryContext string

	// Archetype steers the tone and structure of the recommendations.
	Archetype Archetype
}

// Result is the structured outcome of a metric analysis.
type Result struct {
	// Narrative is the full analysis text, replacing the previous one in memory.
	Narrative string `json:"narrative"`

	// Insights is the structured snapshot extracted from the narrative.
	Insights memory.Document `json:"insights"`

	// Longitudinal documents, shallow-merged into memory.
	HealthTrends     memory.Document `json:"health_trends"`
	ImprovementAreas memory.Document `json:"improvement_areas"`
	SuccessPatterns  memory.Document `json:"success_patterns"`
}

// Trends bundles the result's longitudinal documents for the memory store.
func (r *Result) Trends() memory.TrendUpdates {
	return memory.TrendUpdates{
		HealthTrends:     r.HealthTrends,
		ImprovementAreas: r.ImprovementAreas,
		SuccessPatterns:  r.SuccessPatterns,
	}
}

// Engine produces analyses and plans. Implementations must be safe for
// concurrent use.
type Engine interface {
	// AnalyzeMetrics produces the narrative analysis and derived documents.
	AnalyzeMetrics(ctx context.Context, req Request) (*Result, error)

	// GenerateNutritionPlan builds a structured nutrition plan from a
	// completed analysis narrative.
	GenerateNutritionPlan(ctx context.Context, narrative string) (memory.Document, error)

	// GenerateRoutinePlan builds a structured daily routine plan from a
	// completed analysis narrative, shaped by the archetype.
	GenerateRoutinePlan(ctx context.Context, narrative string, archetype Archetype) (memory.Document, error)
}
