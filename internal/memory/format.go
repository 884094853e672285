package memory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// previousResultLimit truncates the last analysis narrative when rendered as
// prompt context, keeping the prompt budget predictable.
const previousResultLimit = 500

// FormatContext renders a record as a plain-text context block for analysis
// prompts. Empty documents are skipped; a nil record renders a fixed notice.
func FormatContext(rec *Record) string {
	if rec == nil {
		return "No previous memory available for this profile."
	}

	var parts []string
	appendDoc := func(label string, d Document) {
		if len(d) == 0 {
			return
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, renderDoc(d)))
	}

	appendDoc("User Preferences", rec.UserPreferences)
	appendDoc("Health Goals", rec.HealthGoals)
	appendDoc("Dietary Restrictions", rec.DietaryRestrictions)
	appendDoc("Lifestyle Context", rec.LifestyleContext)
	appendDoc("Medical Conditions", rec.MedicalConditions)

	if rec.LastAnalysisResult != "" {
		when := "unknown date"
		if rec.LastAnalysisDate != nil {
			when = rec.LastAnalysisDate.Format("2006-01-02")
		}
		parts = append(parts, fmt.Sprintf("Previous Analysis (from %s): %s",
			when, truncate(rec.LastAnalysisResult, previousResultLimit)))
	}

	appendDoc("Analysis Insights", rec.AnalysisInsights)
	appendDoc("Health Trends", rec.HealthTrends)
	appendDoc("Success Patterns", rec.SuccessPatterns)
	appendDoc("Areas for Improvement", rec.ImprovementAreas)

	parts = append(parts, fmt.Sprintf("Total Previous Analyses: %d", rec.TotalAnalyses))

	return strings.Join(parts, "\n\n")
}

func renderDoc(d Document) string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%v", d)
	}
	return string(b)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
