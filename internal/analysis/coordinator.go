package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vitalsync/healthd/internal/memory"
	"github.com/vitalsync/healthd/internal/profile"
)

// ContextSource provides the health data window for a profile.
type ContextSource interface {
	HealthContext(ctx context.Context, profileID string, days int) (*profile.HealthContext, error)
}

// MemoryStore is the slice of the memory store the coordinator mutates.
type MemoryStore interface {
	GetOrCreate(ctx context.Context, profileID string) (*memory.Record, error)
	ApplyAnalysisResult(ctx context.Context, profileID, resultText string, insights memory.Document, trends memory.TrendUpdates) (*memory.Record, error)
	ApplyPlan(ctx context.Context, profileID string, kind memory.PlanKind, plan memory.Document) (*memory.Record, error)
}

// Coordinator drives the full analysis workflow: context assembly, metric
// analysis, memory persistence, then nutrition and routine planning.
//
// Progress is written line by line to the injected writer; when the
// coordinator runs inside `healthd analyze`, those lines are the stream the
// serving process relays to clients.
type Coordinator struct {
	source     ContextSource
	store      MemoryStore
	engine     Engine
	windowDays int
	logger     *slog.Logger
}

// NewCoordinator wires a Coordinator. windowDays bounds the health data
// window fetched for each run.
func NewCoordinator(source ContextSource, store MemoryStore, engine Engine, windowDays int, logger *slog.Logger) (*Coordinator, error) {
	if source == nil || store == nil || engine == nil {
		return nil, fmt.Errorf("source, store, and engine are required")
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("window days must be positive, got %d", windowDays)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		source:     source,
		store:      store,
		engine:     engine,
		windowDays: windowDays,
		logger:     logger,
	}, nil
}

// Run executes the workflow for one profile. A failure before the analysis
// is stored aborts the run; plan generation failures after that point are
// reported on the progress stream but do not fail the run, so a completed
// analysis is never lost to a planning error.
func (c *Coordinator) Run(ctx context.Context, profileID string, archetype Archetype, out io.Writer) error {
	if !ValidArchetype(string(archetype)) {
		return fmt.Errorf("invalid archetype %q", archetype)
	}

	fmt.Fprintln(out, "Welcome to the Health Analysis System")
	fmt.Fprintf(out, "Starting comprehensive health analysis for profile: %s\n", profileID)
	fmt.Fprintf(out, "Selected: %s\n", archetype)

	fmt.Fprintln(out, "Analyzing user profile data...")
	health, err := c.source.HealthContext(ctx, profileID, c.windowDays)
	if err != nil {
		return fmt.Errorf("fetching health context: %w", err)
	}
	fmt.Fprintf(out, "Data retrieved: %d scores, %d archetypes, %d biomarkers over %d days\n",
		len(health.Scores), len(health.Archetypes), len(health.Biomarkers), c.windowDays)

	rec, err := c.store.GetOrCreate(ctx, profileID)
	if err != nil {
		return fmt.Errorf("loading memory: %w", err)
	}

	fmt.Fprintln(out, "Running health analysis...")
	result, err := c.engine.AnalyzeMetrics(ctx, Request{
		Health:        health,
		MemoryContext: memory.FormatContext(rec),
		Archetype:     archetype,
	})
	if err != nil {
		return fmt.Errorf("health analysis: %w", err)
	}

	if _, err := c.store.ApplyAnalysisResult(ctx, profileID, result.Narrative, result.Insights, result.Trends()); err != nil {
		return fmt.Errorf("storing analysis result: %w", err)
	}
	fmt.Fprintln(out, "Health analysis stored")

	// Plans build on the stored analysis; their failures are reported but
	// never roll it back.
	fmt.Fprintln(out, "Creating personalized nutrition plan...")
	if err := c.generatePlan(ctx, profileID, memory.PlanNutrition, result.Narrative, archetype); err != nil {
		c.logger.Warn("nutrition plan failed", "profile_id", profileID, "error", err)
		fmt.Fprintf(out, "Error creating nutrition plan: %v\n", err)
	} else {
		fmt.Fprintln(out, "Nutrition plan created")
	}

	fmt.Fprintln(out, "Creating personalized routine plan...")
	if err := c.generatePlan(ctx, profileID, memory.PlanRoutine, result.Narrative, archetype); err != nil {
		c.logger.Warn("routine plan failed", "profile_id", profileID, "error", err)
		fmt.Fprintf(out, "Error creating routine plan: %v\n", err)
	} else {
		fmt.Fprintln(out, "Routine plan created")
	}

	fmt.Fprintf(out, "Analysis workflow finished for profile: %s\n", profileID)
	c.logger.Info("analysis run finished", "profile_id", profileID, "archetype", archetype)
	return nil
}

func (c *Coordinator) generatePlan(ctx context.Context, profileID string, kind memory.PlanKind, narrative string, archetype Archetype) error {
	var (
		plan memory.Document
		err  error
	)
	switch kind {
	case memory.PlanNutrition:
		plan, err = c.engine.GenerateNutritionPlan(ctx, narrative)
	case memory.PlanRoutine:
		plan, err = c.engine.GenerateRoutinePlan(ctx, narrative, archetype)
	default:
		return fmt.Errorf("%w: %q", memory.ErrInvalidPlanKind, kind)
	}
	if err != nil {
		return err
	}

	if _, err := c.store.ApplyPlan(ctx, profileID, kind, plan); err != nil {
		return fmt.Errorf("storing plan: %w", err)
	}
	return nil
}
