package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vitalsync/healthd/internal/memory"
	"github.com/vitalsync/healthd/internal/profile"
)

const metricAnalysisPrompt = `You are a health metrics analysis expert. You interpret
personal health data: score trending, biomarker correlation, archetype pattern
recognition, risk factor identification, and personalized recommendations.

Analyze the provided health data and prior memory. When prior memory is present,
identify changes since previous analyses, honor stated preferences and goals, and
avoid repeating identical advice.

Respond with a single JSON object with these keys:
- "narrative": the full analysis as markdown text, covering overall assessment,
  key insights, trend analysis, risk factors, and recommendations
- "insights": object of key findings (fitness level, energy, sleep, stress,
  metabolic indicators, recovery)
- "health_trends": object mapping metric names to trend descriptions
- "improvement_areas": object mapping areas to what needs attention
- "success_patterns": object mapping behaviors to what is working`

const nutritionPlanPrompt = `You are an expert nutritionist creating a detailed,
personalized one-day nutrition plan from a completed health analysis.

Respond with a single JSON object containing:
- "summary": one-paragraph overview of the day's nutrition strategy
- "nutritional_info": daily targets (calories, protein, carbs, fat, fiber,
  sugar, sodium, potassium, key vitamins and minerals)
- seven meal blocks: "early_morning", "breakfast", "morning_snack", "lunch",
  "afternoon_snack", "dinner", "evening_snack" — each with "time_range",
  "nutrition_tip", and "meals" (name, details, calories, protein, macros)`

const routinePlanPrompt = `You are an expert in exercise science and lifestyle
optimization creating a personalized one-day routine from a completed health
analysis, shaped by the selected archetype.

Respond with a single JSON object containing:
- "summary": one-paragraph overview of the day's routine strategy
- four time blocks: "morning_wakeup", "focus_block", "afternoon_recharge",
  "evening_winddown" — each with "time_range", "why_it_matters", and "tasks"
  (task plus reason)`

// OpenAIConfig tunes the chat completion requests.
type OpenAIConfig struct {
	// APIKey falls back to the OPENAI_API_KEY environment variable when empty.
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIEngine implements Engine on OpenAI chat completions. Structured
// outputs are requested in JSON mode and unmarshalled into documents.
type OpenAIEngine struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIEngine creates an engine backed by the OpenAI API.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &OpenAIEngine{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// AnalyzeMetrics runs one JSON-mode completion over the assembled health data
// and prior memory.
func (e *OpenAIEngine) AnalyzeMetrics(ctx context.Context, req Request) (*Result, error) {
	userMsg, err := buildAnalysisInput(req)
	if err != nil {
		return nil, err
	}

	raw, err := e.completeJSON(ctx, metricAnalysisPrompt, userMsg)
	if err != nil {
		return nil, fmt.Errorf("metric analysis: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decoding analysis result: %w", err)
	}
	if result.Narrative == "" {
		return nil, fmt.Errorf("analysis result missing narrative")
	}
	return &result, nil
}

// GenerateNutritionPlan builds the structured one-day nutrition plan.
func (e *OpenAIEngine) GenerateNutritionPlan(ctx context.Context, narrative string) (memory.Document, error) {
	userMsg := "## COMPLETED HEALTH ANALYSIS\n\n" + narrative +
		"\n\nCreate the one-day nutrition plan for this person."

	raw, err := e.completeJSON(ctx, nutritionPlanPrompt, userMsg)
	if err != nil {
		return nil, fmt.Errorf("nutrition plan: %w", err)
	}
	return decodePlan(raw)
}

// GenerateRoutinePlan builds the structured one-day routine plan.
func (e *OpenAIEngine) GenerateRoutinePlan(ctx context.Context, narrative string, archetype Archetype) (memory.Document, error) {
	userMsg := fmt.Sprintf(
		"## SELECTED ARCHETYPE\n%s: %s\n\n## COMPLETED HEALTH ANALYSIS\n\n%s\n\nCreate the one-day routine plan for this person.",
		archetype, archetype.Description(), narrative)

	raw, err := e.completeJSON(ctx, routinePlanPrompt, userMsg)
	if err != nil {
		return nil, fmt.Errorf("routine plan: %w", err)
	}
	return decodePlan(raw)
}

func (e *OpenAIEngine) completeJSON(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func decodePlan(raw string) (memory.Document, error) {
	var plan memory.Document
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("plan is empty")
	}
	return plan, nil
}

// buildAnalysisInput renders the health window and prior memory into the
// user message for the analysis completion.
func buildAnalysisInput(req Request) (string, error) {
	if req.Health == nil {
		return "", fmt.Errorf("health context is required")
	}

	data, err := json.MarshalIndent(healthSummary(req.Health), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding health data: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## USER HEALTH DATA ANALYSIS REQUEST\n\n")
	fmt.Fprintf(&b, "### Time Period\n- Date Range: %s to %s\n- Duration: %d days\n- Profile: %s\n\n",
		req.Health.DateRange.Start.Format("2006-01-02"),
		req.Health.DateRange.End.Format("2006-01-02"),
		req.Health.DateRange.Days,
		req.Health.ProfileID)
	fmt.Fprintf(&b, "### Data Summary\n- Scores: %d records\n- Archetypes: %d records\n- Biomarkers: %d records\n\n",
		len(req.Health.Scores), len(req.Health.Archetypes), len(req.Health.Biomarkers))
	fmt.Fprintf(&b, "### HEALTH DATA\n%s\n", data)

	if req.MemoryContext != "" {
		fmt.Fprintf(&b, "\n### PREVIOUS MEMORY & CONTEXT\n%s\n", req.MemoryContext)
	}
	if req.Archetype != "" {
		fmt.Fprintf(&b, "\n### SELECTED ARCHETYPE\n%s: %s\n", req.Archetype, req.Archetype.Description())
	}

	return b.String(), nil
}

// healthSummary strips row metadata that adds tokens without signal.
func healthSummary(hc *profile.HealthContext) map[string]any {
	scores := make([]map[string]any, 0, len(hc.Scores))
	for _, s := range hc.Scores {
		scores = append(scores, map[string]any{
			"type": s.Type, "score": s.Score, "data": s.Data,
			"at": s.ScoreDateTime.Format("2006-01-02"),
		})
	}
	archetypes := make([]map[string]any, 0, len(hc.Archetypes))
	for _, a := range hc.Archetypes {
		archetypes = append(archetypes, map[string]any{
			"name": a.Name, "periodicity": a.Periodicity, "value": a.Value, "data": a.Data,
			"from": a.StartDateTime.Format("2006-01-02"), "to": a.EndDateTime.Format("2006-01-02"),
		})
	}
	biomarkers := make([]map[string]any, 0, len(hc.Biomarkers))
	for _, m := range hc.Biomarkers {
		biomarkers = append(biomarkers, map[string]any{
			"category": m.Category, "type": m.Type, "data": m.Data,
			"from": m.StartDateTime.Format("2006-01-02"), "to": m.EndDateTime.Format("2006-01-02"),
		})
	}
	return map[string]any{
		"scores":     scores,
		"archetypes": archetypes,
		"biomarkers": biomarkers,
	}
}
