package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want Stage
	}{
		{"Welcome to the Health Analysis System", StageInitialization},
		{"SELECT YOUR ROUTINE PLAN ARCHETYPE", StageArchetypeSelection},
		{"Selected: Peak Performer", StageArchetypeConfirmed},
		{"Analyzing user profile data...", StageProfileAnalysis},
		{"Running health analysis...", StageHealthAnalysis},
		{"Starting behavior analysis", StageBehaviorAnalysis},
		{"Creating personalized nutrition plan...", StageNutritionPlanning},
		{"Creating personalized routine plan...", StageRoutinePlanning},
		{"Generating recommendations", StageGeneratingPlans},
		{"Analysis workflow finished for profile: p1", StageCompleted},
		{"Analysis completed successfully", StageCompleted},
		{"Error creating nutrition plan: model overloaded", StageNutritionPlanning},
		{"error: something broke", StageError},
		{"Data retrieved: 3 scores", StageProcessing},
		{"", StageProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyStage(tt.line))
		})
	}
}
