//go:build integration
// +build integration

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/healthd/internal/profile"
	"github.com/vitalsync/healthd/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *pgxpool.Pool, func()) {
	t.Helper()

	tdb, cleanup := testutil.SetupTestDB(t)

	registry, err := profile.NewRegistry(tdb.Pool, testutil.NewTestLogger(t))
	require.NoError(t, err)

	store, err := NewStore(tdb.Pool, registry, testutil.NewTestLogger(t))
	require.NoError(t, err)

	return store, tdb.Pool, cleanup
}

func seedProfile(t *testing.T, pool *pgxpool.Pool, profileID string) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO profiles (id, name) VALUES ($1, $2)`, profileID, "Test Profile")
	require.NoError(t, err)
}

func countMemoryRows(t *testing.T, pool *pgxpool.Pool, profileID string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM memory WHERE profile_id = $1`, profileID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestStore_GetOrCreate_Defaults_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	rec, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "p1", rec.ProfileID)
	assert.Empty(t, rec.UserPreferences)
	assert.Empty(t, rec.HealthGoals)
	assert.Empty(t, rec.DietaryRestrictions)
	assert.Empty(t, rec.LifestyleContext)
	assert.Empty(t, rec.MedicalConditions)
	assert.Nil(t, rec.LastAnalysisDate)
	assert.Empty(t, rec.LastAnalysisResult)
	assert.Nil(t, rec.LastNutritionPlan)
	assert.Nil(t, rec.LastRoutinePlan)
	assert.Nil(t, rec.NutritionPlanDate)
	assert.Nil(t, rec.RoutinePlanDate)
	assert.Equal(t, 0, rec.TotalAnalyses)
	assert.Equal(t, 1, rec.MemoryVersion)
	assert.NotZero(t, rec.CreatedAt)
	assert.NotZero(t, rec.UpdatedAt)

	// Second call returns the same record, never a duplicate.
	again, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, 1, again.MemoryVersion)
	assert.Equal(t, 1, countMemoryRows(t, pool, "p1"))
}

func TestStore_GetOrCreate_UnknownProfile_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	rec, err := store.GetOrCreate(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownProfile)
	assert.Nil(t, rec)

	// The failed lookup must not leave a record behind.
	assert.Equal(t, 0, countMemoryRows(t, pool, "ghost"))
}

func TestStore_Read_NoMemory_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	// Read never auto-creates, even for a registered profile.
	rec, err := store.Read(ctx, "p1")
	require.ErrorIs(t, err, ErrNoMemory)
	assert.Nil(t, rec)
	assert.Equal(t, 0, countMemoryRows(t, pool, "p1"))
}

func TestStore_ApplyAnalysisResult_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	rec, err := store.ApplyAnalysisResult(ctx, "p1", "first analysis",
		Document{"focus": "cardio"},
		TrendUpdates{HealthTrends: Document{"weight": "down"}})
	require.NoError(t, err)

	assert.Equal(t, "first analysis", rec.LastAnalysisResult)
	assert.Equal(t, Document{"focus": "cardio"}, rec.AnalysisInsights)
	assert.Equal(t, Document{"weight": "down"}, rec.HealthTrends)
	require.NotNil(t, rec.LastAnalysisDate)
	assert.Equal(t, 1, rec.TotalAnalyses)
	assert.Equal(t, 2, rec.MemoryVersion)

	// Second analysis replaces the snapshot fields and merges the trends.
	rec, err = store.ApplyAnalysisResult(ctx, "p1", "second analysis",
		Document{"focus": "sleep"},
		TrendUpdates{
			HealthTrends:     Document{"hrv": "up"},
			ImprovementAreas: Document{"hydration": "low"},
		})
	require.NoError(t, err)

	assert.Equal(t, "second analysis", rec.LastAnalysisResult)
	assert.Equal(t, Document{"focus": "sleep"}, rec.AnalysisInsights)
	assert.Equal(t, Document{"weight": "down", "hrv": "up"}, rec.HealthTrends)
	assert.Equal(t, Document{"hydration": "low"}, rec.ImprovementAreas)
	assert.Equal(t, 2, rec.TotalAnalyses)
	assert.Equal(t, 3, rec.MemoryVersion)
}

func TestStore_TotalAnalysesCountsCompletions_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	const n = 5
	for i := range n {
		_, err := store.ApplyAnalysisResult(ctx, "p1",
			fmt.Sprintf("analysis %d", i), nil, TrendUpdates{})
		require.NoError(t, err)
	}

	rec, err := store.Read(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, n, rec.TotalAnalyses)
}

func TestStore_ApplyPlan_ReplacesWholesale_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	rec, err := store.ApplyPlan(ctx, "p1", PlanNutrition,
		Document{"breakfast": "oats", "lunch": "salad"})
	require.NoError(t, err)
	require.NotNil(t, rec.NutritionPlanDate)
	firstDate := *rec.NutritionPlanDate

	// Replacement drops keys absent from the new plan.
	rec, err = store.ApplyPlan(ctx, "p1", PlanNutrition, Document{"breakfast": "eggs"})
	require.NoError(t, err)
	assert.Equal(t, Document{"breakfast": "eggs"}, rec.LastNutritionPlan)
	assert.NotContains(t, rec.LastNutritionPlan, "lunch")
	require.NotNil(t, rec.NutritionPlanDate)
	assert.False(t, rec.NutritionPlanDate.Before(firstDate))

	// The routine plan is independent.
	assert.Nil(t, rec.LastRoutinePlan)
	assert.Nil(t, rec.RoutinePlanDate)

	rec, err = store.ApplyPlan(ctx, "p1", PlanRoutine, Document{"monday": "run"})
	require.NoError(t, err)
	assert.Equal(t, Document{"monday": "run"}, rec.LastRoutinePlan)
	assert.Equal(t, Document{"breakfast": "eggs"}, rec.LastNutritionPlan)

	// Plan mutations never touch the analysis counter.
	assert.Equal(t, 0, rec.TotalAnalyses)
}

func TestStore_ApplyPlan_InvalidKind_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	seedProfile(t, pool, "p1")

	rec, err := store.ApplyPlan(context.Background(), "p1", PlanKind("exercise"), Document{})
	require.ErrorIs(t, err, ErrInvalidPlanKind)
	assert.Nil(t, rec)
	assert.Equal(t, 0, countMemoryRows(t, pool, "p1"))
}

func TestStore_UpdateContext_MergeSemantics_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	rec, err := store.UpdateContext(ctx, "p1", ContextUpdates{
		HealthGoals:     Document{"target": "5k", "weight": "75kg"},
		UserPreferences: Document{"tone": "direct"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.MemoryVersion)

	// Overlapping keys overwrite, absent keys survive.
	rec, err = store.UpdateContext(ctx, "p1", ContextUpdates{
		HealthGoals: Document{"target": "10k"},
	})
	require.NoError(t, err)
	assert.Equal(t, Document{"target": "10k", "weight": "75kg"}, rec.HealthGoals)
	assert.Equal(t, Document{"tone": "direct"}, rec.UserPreferences)
	assert.Equal(t, 3, rec.MemoryVersion)

	// Applying the same update twice converges to the same documents.
	again, err := store.UpdateContext(ctx, "p1", ContextUpdates{
		HealthGoals: Document{"target": "10k"},
	})
	require.NoError(t, err)
	assert.Equal(t, rec.HealthGoals, again.HealthGoals)
	assert.Equal(t, rec.UserPreferences, again.UserPreferences)
}

func TestStore_UpdateContext_EmptyIsNoOp_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	before, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)

	after, err := store.UpdateContext(ctx, "p1", ContextUpdates{})
	require.NoError(t, err)

	assert.Equal(t, before.MemoryVersion, after.MemoryVersion)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestStore_UpdatedAtTrigger_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	before, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	after, err := store.UpdateContext(ctx, "p1", ContextUpdates{
		LifestyleContext: Document{"job": "desk"},
	})
	require.NoError(t, err)

	assert.True(t, after.UpdatedAt.After(before.UpdatedAt),
		"updated_at should advance on mutation: before=%v after=%v",
		before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

// Concurrent writers touching disjoint keys must all land; the fencing
// retries resolve interleavings without losing updates.
func TestStore_ConcurrentDisjointUpdates_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	_, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)

	const writers = 5
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			update := ContextUpdates{
				HealthGoals: Document{fmt.Sprintf("goal_%d", i): true},
			}
			// ErrVersionConflict is transient; a real caller retries.
			for {
				_, err := store.UpdateContext(ctx, "p1", update)
				if !errors.Is(err, ErrVersionConflict) {
					errs[i] = err
					return
				}
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	rec, err := store.Read(ctx, "p1")
	require.NoError(t, err)
	for i := range writers {
		assert.Contains(t, rec.HealthGoals, fmt.Sprintf("goal_%d", i))
	}
	// Each successful mutation bumps the version exactly once.
	assert.Equal(t, 1+writers, rec.MemoryVersion)
}

// Full lifecycle: lazy create at version 1, analysis bumps to 2, plan to 3.
func TestStore_VersionLifecycle_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	rec, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MemoryVersion)

	rec, err = store.ApplyAnalysisResult(ctx, "p1", "analysis", nil, TrendUpdates{})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.MemoryVersion)

	rec, err = store.ApplyPlan(ctx, "p1", PlanNutrition, Document{"breakfast": "oats"})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.MemoryVersion)
}

// Mutations on a missing record create it first, then apply.
func TestStore_MutationCreatesRecord_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	rec, err := store.UpdateContext(ctx, "p1", ContextUpdates{
		MedicalConditions: Document{"allergy": "nuts"},
	})
	require.NoError(t, err)
	assert.Equal(t, Document{"allergy": "nuts"}, rec.MedicalConditions)
	assert.Equal(t, 2, rec.MemoryVersion)
	assert.Equal(t, 1, countMemoryRows(t, pool, "p1"))
}

// Cascade: deleting a profile removes its memory record at the database level.
func TestStore_ProfileDeleteCascades_Integration(t *testing.T) {
	store, pool, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, pool, "p1")

	_, err := store.GetOrCreate(ctx, "p1")
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `DELETE FROM profiles WHERE id = 'p1'`)
	require.NoError(t, err)

	_, err = store.Read(ctx, "p1")
	require.ErrorIs(t, err, ErrNoMemory)
}
