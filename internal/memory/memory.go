// Package memory owns the per-profile analysis memory record: its schema,
// uniqueness invariant, merge semantics, and optimistic versioning.
//
// Each profile has exactly one Record. It is created lazily on the first
// analysis request, mutated by analysis completion and plan generation, and
// never deleted by this service (profile deletion cascades at the database
// level).
//
// Merge semantics are a business rule, not a storage default:
//   - context documents and longitudinal tracking documents shallow-merge
//     (keys in the update overwrite, absent keys are preserved)
//   - analysis insights and generated plans are replaced wholesale
package memory

import "time"

// Document is a structured key-value document persisted as JSONB.
type Document = map[string]any

// PlanKind identifies which generated plan a mutation targets.
type PlanKind string

// Plan kinds accepted by ApplyPlan.
const (
	PlanNutrition PlanKind = "nutrition"
	PlanRoutine   PlanKind = "routine"
)

// Valid reports whether k names a known plan kind.
func (k PlanKind) Valid() bool {
	return k == PlanNutrition || k == PlanRoutine
}

// Record is the single durable row capturing a profile's accumulated health
// context, analysis history, and generated plans.
type Record struct {
	ID        int64
	ProfileID string

	// Accumulated user context, shallow-merged on update.
	UserPreferences     Document
	HealthGoals         Document
	DietaryRestrictions Document
	LifestyleContext    Document
	MedicalConditions   Document

	// Latest analysis snapshot, replaced wholesale.
	LastAnalysisDate   *time.Time
	LastAnalysisResult string
	AnalysisInsights   Document

	// Generated plans, fully replaced on regeneration. Nil when never generated.
	LastNutritionPlan Document
	LastRoutinePlan   Document
	NutritionPlanDate *time.Time
	RoutinePlanDate   *time.Time

	// Longitudinal tracking, accumulated across analyses.
	HealthTrends     Document
	ImprovementAreas Document
	SuccessPatterns  Document

	TotalAnalyses int
	MemoryVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContextUpdates carries partial values for the five accumulated context
// documents. Nil documents leave the stored document untouched.
type ContextUpdates struct {
	UserPreferences     Document
	HealthGoals         Document
	DietaryRestrictions Document
	LifestyleContext    Document
	MedicalConditions   Document
}

// Empty reports whether the update carries no changes at all.
func (u ContextUpdates) Empty() bool {
	return len(u.UserPreferences) == 0 &&
		len(u.HealthGoals) == 0 &&
		len(u.DietaryRestrictions) == 0 &&
		len(u.LifestyleContext) == 0 &&
		len(u.MedicalConditions) == 0
}

// TrendUpdates carries partial values for the three longitudinal tracking
// documents merged on each analysis completion.
type TrendUpdates struct {
	HealthTrends     Document
	ImprovementAreas Document
	SuccessPatterns  Document
}

// mergeShallow combines two documents: keys present in updates overwrite the
// same key in base, keys absent from updates are preserved. The inputs are
// never modified; the result is always a fresh map.
func mergeShallow(base, updates Document) Document {
	merged := make(Document, len(base)+len(updates))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}
