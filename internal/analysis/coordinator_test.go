package analysis

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/healthd/internal/log"
	"github.com/vitalsync/healthd/internal/memory"
	"github.com/vitalsync/healthd/internal/profile"
)

type fakeSource struct {
	health *profile.HealthContext
	err    error
	calls  int
}

func (f *fakeSource) HealthContext(_ context.Context, profileID string, days int) (*profile.HealthContext, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.health != nil {
		return f.health, nil
	}
	return &profile.HealthContext{
		ProfileID: profileID,
		DateRange: profile.DateRange{Days: days},
	}, nil
}

type fakeStore struct {
	rec          *memory.Record
	analysisErr  error
	planErr      error
	narrative    string
	insights     memory.Document
	trends       memory.TrendUpdates
	plans        map[memory.PlanKind]memory.Document
	analysisRuns int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rec:   &memory.Record{ProfileID: "p1", MemoryVersion: 1},
		plans: map[memory.PlanKind]memory.Document{},
	}
}

func (f *fakeStore) GetOrCreate(context.Context, string) (*memory.Record, error) {
	return f.rec, nil
}

func (f *fakeStore) ApplyAnalysisResult(_ context.Context, _ string, resultText string, insights memory.Document, trends memory.TrendUpdates) (*memory.Record, error) {
	if f.analysisErr != nil {
		return nil, f.analysisErr
	}
	f.analysisRuns++
	f.narrative = resultText
	f.insights = insights
	f.trends = trends
	return f.rec, nil
}

func (f *fakeStore) ApplyPlan(_ context.Context, _ string, kind memory.PlanKind, plan memory.Document) (*memory.Record, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	f.plans[kind] = plan
	return f.rec, nil
}

type fakeEngine struct {
	result       *Result
	analyzeErr   error
	nutritionErr error
	routineErr   error
	memorySeen   string
}

func (f *fakeEngine) AnalyzeMetrics(_ context.Context, req Request) (*Result, error) {
	f.memorySeen = req.MemoryContext
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &Result{
		Narrative:    "analysis narrative",
		Insights:     memory.Document{"focus": "sleep"},
		HealthTrends: memory.Document{"hrv": "up"},
	}, nil
}

func (f *fakeEngine) GenerateNutritionPlan(context.Context, string) (memory.Document, error) {
	if f.nutritionErr != nil {
		return nil, f.nutritionErr
	}
	return memory.Document{"breakfast": "oats"}, nil
}

func (f *fakeEngine) GenerateRoutinePlan(context.Context, string, Archetype) (memory.Document, error) {
	if f.routineErr != nil {
		return nil, f.routineErr
	}
	return memory.Document{"morning": "run"}, nil
}

func newTestCoordinator(t *testing.T, source *fakeSource, store *fakeStore, engine *fakeEngine) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(source, store, engine, 7, log.NewNop())
	require.NoError(t, err)
	return c
}

func TestCoordinatorRun_HappyPath(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	store := newFakeStore()
	engine := &fakeEngine{}
	c := newTestCoordinator(t, source, store, engine)

	var out bytes.Buffer
	err := c.Run(context.Background(), "p1", PeakPerformer, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, "analysis narrative", store.narrative)
	assert.Equal(t, memory.Document{"focus": "sleep"}, store.insights)
	assert.Equal(t, memory.Document{"hrv": "up"}, store.trends.HealthTrends)
	assert.Equal(t, memory.Document{"breakfast": "oats"}, store.plans[memory.PlanNutrition])
	assert.Equal(t, memory.Document{"morning": "run"}, store.plans[memory.PlanRoutine])

	// Prior memory is rendered into the engine request.
	assert.Contains(t, engine.memorySeen, "Total Previous Analyses: 0")

	progress := out.String()
	assert.Contains(t, progress, "Welcome to the Health Analysis System")
	assert.Contains(t, progress, "Selected: Peak Performer")
	assert.Contains(t, progress, "Running health analysis...")
	assert.Contains(t, progress, "Creating personalized nutrition plan...")
	assert.Contains(t, progress, "Creating personalized routine plan...")
	assert.Contains(t, progress, "Analysis workflow finished for profile: p1")
}

func TestCoordinatorRun_InvalidArchetype(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	store := newFakeStore()
	c := newTestCoordinator(t, source, store, &fakeEngine{})

	var out bytes.Buffer
	err := c.Run(context.Background(), "p1", Archetype("Couch Potato"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid archetype")

	// Nothing should run before validation.
	assert.Zero(t, source.calls)
	assert.Zero(t, store.analysisRuns)
	assert.Empty(t, out.String())
}

func TestCoordinatorRun_ContextFetchFailureAborts(t *testing.T) {
	t.Parallel()

	source := &fakeSource{err: errors.New("db down")}
	store := newFakeStore()
	c := newTestCoordinator(t, source, store, &fakeEngine{})

	err := c.Run(context.Background(), "p1", FoundationBuilder, &bytes.Buffer{})
	require.Error(t, err)
	assert.Zero(t, store.analysisRuns)
}

func TestCoordinatorRun_AnalysisFailureAborts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	engine := &fakeEngine{analyzeErr: errors.New("model unavailable")}
	c := newTestCoordinator(t, &fakeSource{}, store, engine)

	err := c.Run(context.Background(), "p1", FoundationBuilder, &bytes.Buffer{})
	require.Error(t, err)
	assert.Zero(t, store.analysisRuns)
	assert.Empty(t, store.plans)
}

func TestCoordinatorRun_PlanFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	engine := &fakeEngine{nutritionErr: errors.New("model overloaded")}
	c := newTestCoordinator(t, &fakeSource{}, store, engine)

	var out bytes.Buffer
	err := c.Run(context.Background(), "p1", FoundationBuilder, &out)
	require.NoError(t, err)

	// The analysis is stored, the routine plan still runs.
	assert.Equal(t, 1, store.analysisRuns)
	assert.NotContains(t, store.plans, memory.PlanNutrition)
	assert.Contains(t, store.plans, memory.PlanRoutine)
	assert.Contains(t, out.String(), "Error creating nutrition plan")
	assert.Contains(t, out.String(), "Analysis workflow finished")
}

func TestNewCoordinatorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewCoordinator(nil, newFakeStore(), &fakeEngine{}, 7, log.NewNop())
	assert.Error(t, err)

	_, err = NewCoordinator(&fakeSource{}, newFakeStore(), &fakeEngine{}, 0, log.NewNop())
	assert.Error(t, err)
}
