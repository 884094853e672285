//go:build integration
// +build integration

package profile

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/healthd/internal/testutil"
)

func newTestRegistry(t *testing.T) (*Registry, *pgxpool.Pool, func()) {
	t.Helper()

	tdb, cleanup := testutil.SetupTestDB(t)

	registry, err := NewRegistry(tdb.Pool, testutil.NewTestLogger(t))
	require.NoError(t, err)

	return registry, tdb.Pool, cleanup
}

func TestRegistry_Exists_Integration(t *testing.T) {
	registry, pool, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()

	exists, err := registry.Exists(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = pool.Exec(ctx, `INSERT INTO profiles (id, name) VALUES ('p1', 'Ada')`)
	require.NoError(t, err)

	exists, err = registry.Exists(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegistry_Get_Integration(t *testing.T) {
	registry, pool, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()

	_, err := registry.Get(ctx, "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)

	_, err = pool.Exec(ctx, `INSERT INTO profiles (id, name) VALUES ('p1', 'Ada')`)
	require.NoError(t, err)

	p, err := registry.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Ada", p.Name)
	assert.NotZero(t, p.CreatedAt)
}

func TestRegistry_HealthContext_Integration(t *testing.T) {
	registry, pool, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	_, err := pool.Exec(ctx, `INSERT INTO profiles (id, name) VALUES ('p1', 'Ada')`)
	require.NoError(t, err)

	// Two scores inside the window, one far outside it.
	_, err = pool.Exec(ctx, `
		INSERT INTO scores (profile_id, type, score, data, score_date_time) VALUES
		('p1', 'sleep',    82, '{"deep_minutes": 95}',  $1),
		('p1', 'activity', 67, '{"steps": 8200}',       $2),
		('p1', 'sleep',    40, '{"deep_minutes": 20}',  $3)`,
		now.AddDate(0, 0, -1), now.AddDate(0, 0, -3), now.AddDate(0, 0, -30))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO archetypes (profile_id, name, periodicity, value, data, start_date_time, end_date_time)
		VALUES ('p1', 'sleep_pattern', 'weekly', 'night_owl', '{}', $1, $2)`,
		now.AddDate(0, 0, -5), now.AddDate(0, 0, -1))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO biomarkers (profile_id, category, type, data, start_date_time, end_date_time)
		VALUES ('p1', 'cardio', 'resting_hr', '{"avg": 58}', $1, $2)`,
		now.AddDate(0, 0, -2), now.AddDate(0, 0, -1))
	require.NoError(t, err)

	hc, err := registry.HealthContext(ctx, "p1", 7)
	require.NoError(t, err)

	assert.Equal(t, "p1", hc.ProfileID)
	assert.Equal(t, 7, hc.DateRange.Days)
	assert.True(t, hc.DateRange.End.After(hc.DateRange.Start))

	// Only in-window rows, newest first.
	require.Len(t, hc.Scores, 2)
	assert.Equal(t, "sleep", hc.Scores[0].Type)
	assert.Equal(t, 82.0, hc.Scores[0].Score)
	assert.Equal(t, "activity", hc.Scores[1].Type)
	assert.Equal(t, map[string]any{"steps": float64(8200)}, hc.Scores[1].Data)

	require.Len(t, hc.Archetypes, 1)
	assert.Equal(t, "night_owl", hc.Archetypes[0].Value)

	require.Len(t, hc.Biomarkers, 1)
	assert.Equal(t, "resting_hr", hc.Biomarkers[0].Type)
}

func TestRegistry_HealthContext_EmptyWindow_Integration(t *testing.T) {
	registry, pool, cleanup := newTestRegistry(t)
	defer cleanup()

	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO profiles (id, name) VALUES ('p1', 'Ada')`)
	require.NoError(t, err)

	// No data at all is a valid, empty context.
	hc, err := registry.HealthContext(ctx, "p1", 7)
	require.NoError(t, err)
	assert.Empty(t, hc.Scores)
	assert.Empty(t, hc.Archetypes)
	assert.Empty(t, hc.Biomarkers)
}

func TestRegistry_HealthContext_UnknownProfile_Integration(t *testing.T) {
	registry, _, cleanup := newTestRegistry(t)
	defer cleanup()

	hc, err := registry.HealthContext(context.Background(), "ghost", 7)
	require.ErrorIs(t, err, ErrProfileNotFound)
	assert.Nil(t, hc)
}
