package runner

import "strings"

// Stage classifies a progress line into a workflow phase so clients can
// render progress without parsing free text.
type Stage string

// Workflow stages, roughly in order of appearance.
const (
	StageInitialization     Stage = "initialization"
	StageArchetypeSelection Stage = "archetype_selection"
	StageArchetypeConfirmed Stage = "archetype_confirmed"
	StageProfileAnalysis    Stage = "profile_analysis"
	StageHealthAnalysis     Stage = "health_analysis"
	StageBehaviorAnalysis   Stage = "behavior_analysis"
	StageNutritionPlanning  Stage = "nutrition_planning"
	StageRoutinePlanning    Stage = "routine_planning"
	StageGeneratingPlans    Stage = "generating_plans"
	StageCompleted          Stage = "completed"
	StageError              Stage = "error"
	StageProcessing         Stage = "processing"
)

// ClassifyStage maps one output line to a stage by keyword. Earlier rules
// win, so more specific phrases must be checked before generic ones.
func ClassifyStage(line string) Stage {
	l := strings.ToLower(line)

	switch {
	case strings.Contains(l, "welcome to the health analysis system"):
		return StageInitialization
	case strings.Contains(l, "select your routine plan archetype"):
		return StageArchetypeSelection
	case strings.Contains(l, "selected:"):
		return StageArchetypeConfirmed
	case strings.Contains(l, "analyzing user profile") || strings.Contains(l, "profile analysis"):
		return StageProfileAnalysis
	case strings.Contains(l, "health analysis"):
		return StageHealthAnalysis
	case strings.Contains(l, "behavior analysis"):
		return StageBehaviorAnalysis
	case strings.Contains(l, "nutrition plan"):
		return StageNutritionPlanning
	case strings.Contains(l, "routine plan"):
		return StageRoutinePlanning
	case strings.Contains(l, "generating"):
		return StageGeneratingPlans
	case strings.Contains(l, "completed") || strings.Contains(l, "finished"):
		return StageCompleted
	case strings.Contains(l, "error"):
		return StageError
	default:
		return StageProcessing
	}
}
