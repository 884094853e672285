package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProfileNotFound indicates the profile does not exist in the registry.
var ErrProfileNotFound = errors.New("profile not found")

// Registry provides read access to profiles and their longitudinal data.
// Safe for concurrent use.
type Registry struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRegistry creates a profile Registry.
func NewRegistry(pool *pgxpool.Pool, logger *slog.Logger) (*Registry, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{pool: pool, logger: logger}, nil
}

// Exists reports whether a profile is present in the registry.
func (r *Registry) Exists(ctx context.Context, profileID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, profileID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking profile existence: %w", err)
	}
	return exists, nil
}

// Get returns one registry row, or ErrProfileNotFound.
func (r *Registry) Get(ctx context.Context, profileID string) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM profiles WHERE id = $1`, profileID).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return &p, nil
}

// HealthContext fetches all scores, archetypes, and biomarkers for a profile
// within the trailing window of the given number of days, newest first.
// Returns ErrProfileNotFound when the profile is absent from the registry.
func (r *Registry) HealthContext(ctx context.Context, profileID string, days int) (*HealthContext, error) {
	exists, err := r.Exists(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	scores, err := r.fetchScores(ctx, profileID, start, end)
	if err != nil {
		return nil, err
	}
	archetypes, err := r.fetchArchetypes(ctx, profileID, start, end)
	if err != nil {
		return nil, err
	}
	biomarkers, err := r.fetchBiomarkers(ctx, profileID, start, end)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("fetched health context",
		"profile_id", profileID, "days", days,
		"scores", len(scores), "archetypes", len(archetypes), "biomarkers", len(biomarkers))

	return &HealthContext{
		ProfileID:  profileID,
		Scores:     scores,
		Archetypes: archetypes,
		Biomarkers: biomarkers,
		DateRange:  DateRange{Start: start, End: end, Days: days},
	}, nil
}

func (r *Registry) fetchScores(ctx context.Context, profileID string, start, end time.Time) ([]Score, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, profile_id, type, score, data, score_date_time, created_at, updated_at
		FROM scores
		WHERE profile_id = $1 AND score_date_time >= $2 AND score_date_time <= $3
		ORDER BY score_date_time DESC`,
		profileID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	scores := []Score{}
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Type, &s.Score, &s.Data,
			&s.ScoreDateTime, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scores: %w", err)
	}
	return scores, nil
}

func (r *Registry) fetchArchetypes(ctx context.Context, profileID string, start, end time.Time) ([]Archetype, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, profile_id, name, periodicity, value, data,
		       start_date_time, end_date_time, created_at, updated_at
		FROM archetypes
		WHERE profile_id = $1 AND start_date_time >= $2 AND end_date_time <= $3
		ORDER BY start_date_time DESC`,
		profileID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying archetypes: %w", err)
	}
	defer rows.Close()

	archetypes := []Archetype{}
	for rows.Next() {
		var a Archetype
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.Name, &a.Periodicity, &a.Value, &a.Data,
			&a.StartDateTime, &a.EndDateTime, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning archetype: %w", err)
		}
		archetypes = append(archetypes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archetypes: %w", err)
	}
	return archetypes, nil
}

func (r *Registry) fetchBiomarkers(ctx context.Context, profileID string, start, end time.Time) ([]Biomarker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, profile_id, category, type, data,
		       start_date_time, end_date_time, created_at, updated_at
		FROM biomarkers
		WHERE profile_id = $1 AND start_date_time >= $2 AND end_date_time <= $3
		ORDER BY start_date_time DESC`,
		profileID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying biomarkers: %w", err)
	}
	defer rows.Close()

	biomarkers := []Biomarker{}
	for rows.Next() {
		var b Biomarker
		if err := rows.Scan(&b.ID, &b.ProfileID, &b.Category, &b.Type, &b.Data,
			&b.StartDateTime, &b.EndDateTime, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning biomarker: %w", err)
		}
		biomarkers = append(biomarkers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating biomarkers: %w", err)
	}
	return biomarkers, nil
}
