package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileChecker validates referential integrity against the profile
// registry before a memory record is created. Defined here because the
// store is the consumer.
type ProfileChecker interface {
	Exists(ctx context.Context, profileID string) (bool, error)
}

// maxFencingAttempts bounds the optimistic-version retry loop. Each attempt
// re-reads the record, so a conflict only survives if another writer lands
// between the fresh read and the fenced UPDATE three times in a row.
const maxFencingAttempts = 3

// memoryCols is the standard SELECT column list for scanRecord.
const memoryCols = `id, profile_id,
	user_preferences, health_goals, dietary_restrictions, lifestyle_context, medical_conditions,
	last_analysis_date, last_analysis_result, analysis_insights,
	last_nutrition_plan, last_routine_plan, nutrition_plan_date, routine_plan_date,
	health_trends, improvement_areas, success_patterns,
	total_analyses, memory_version, created_at, updated_at`

// updateMemorySQL writes every mutable column, fenced on memory_version.
// updated_at is stamped by the trg_memory_set_updated_at trigger, never here.
const updateMemorySQL = `UPDATE memory SET
	user_preferences = $3, health_goals = $4, dietary_restrictions = $5,
	lifestyle_context = $6, medical_conditions = $7,
	last_analysis_date = $8, last_analysis_result = $9, analysis_insights = $10,
	last_nutrition_plan = $11, last_routine_plan = $12,
	nutrition_plan_date = $13, routine_plan_date = $14,
	health_trends = $15, improvement_areas = $16, success_patterns = $17,
	total_analyses = $18, memory_version = $19
	WHERE profile_id = $1 AND memory_version = $2`

// Store is the single source of truth for a profile's accumulated health
// context, analysis history, and generated plans.
//
// Each mutating operation executes as an atomic read-modify-write: a fresh
// read followed by an UPDATE fenced on the read memory_version. A fencing
// miss is retried with a fresh read up to maxFencingAttempts before
// surfacing ErrVersionConflict. Mutations for different profiles are fully
// independent.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	profiles ProfileChecker
	logger   *slog.Logger
}

// NewStore creates a memory Store.
func NewStore(pool *pgxpool.Pool, profiles ProfileChecker, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile checker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, profiles: profiles, logger: logger}, nil
}

// Read returns the current memory record for a profile.
// It never auto-creates; a missing record yields ErrNoMemory.
func (s *Store) Read(ctx context.Context, profileID string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+memoryCols+` FROM memory WHERE profile_id = $1`, profileID)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: profile %s", ErrNoMemory, profileID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading memory record: %w", err)
	}
	return rec, nil
}

// GetOrCreate returns the existing memory record for a profile, creating one
// with default empty fields if none exists. This is the only creation path.
// Fails with ErrUnknownProfile when the profile is absent from the registry;
// no record is created in that case.
func (s *Store) GetOrCreate(ctx context.Context, profileID string) (*Record, error) {
	rec, err := s.Read(ctx, profileID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNoMemory) {
		return nil, err
	}

	exists, err := s.profiles.Exists(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("checking profile registry: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, profileID)
	}

	// ON CONFLICT DO NOTHING keeps concurrent first-analysis requests from
	// violating the one-record-per-profile invariant.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO memory (profile_id) VALUES ($1) ON CONFLICT (profile_id) DO NOTHING`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("creating memory record: %w", err)
	}

	s.logger.Debug("created memory record", "profile_id", profileID)
	return s.Read(ctx, profileID)
}

// ApplyAnalysisResult merges a completed analysis into the record:
// the narrative and insight snapshot replace the previous ones, the
// longitudinal documents shallow-merge with trends, total_analyses
// increments by exactly one.
func (s *Store) ApplyAnalysisResult(ctx context.Context, profileID, resultText string, insights Document, trends TrendUpdates) (*Record, error) {
	return s.mutate(ctx, profileID, func(rec *Record) {
		now := time.Now().UTC()
		rec.LastAnalysisResult = resultText
		rec.AnalysisInsights = docOrEmpty(insights)
		rec.LastAnalysisDate = &now
		rec.HealthTrends = mergeShallow(rec.HealthTrends, trends.HealthTrends)
		rec.ImprovementAreas = mergeShallow(rec.ImprovementAreas, trends.ImprovementAreas)
		rec.SuccessPatterns = mergeShallow(rec.SuccessPatterns, trends.SuccessPatterns)
		rec.TotalAnalyses++
	})
}

// ApplyPlan fully replaces the stored plan of the given kind — a new plan
// supersedes the old one entirely. Analysis fields and total_analyses are
// untouched.
func (s *Store) ApplyPlan(ctx context.Context, profileID string, kind PlanKind, plan Document) (*Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlanKind, kind)
	}

	return s.mutate(ctx, profileID, func(rec *Record) {
		now := time.Now().UTC()
		switch kind {
		case PlanNutrition:
			rec.LastNutritionPlan = docOrEmpty(plan)
			rec.NutritionPlanDate = &now
		case PlanRoutine:
			rec.LastRoutinePlan = docOrEmpty(plan)
			rec.RoutinePlanDate = &now
		}
	})
}

// UpdateContext shallow-merges partial values into the five accumulated
// context documents independently. An empty update is a no-op and does not
// bump memory_version.
func (s *Store) UpdateContext(ctx context.Context, profileID string, updates ContextUpdates) (*Record, error) {
	if updates.Empty() {
		return s.GetOrCreate(ctx, profileID)
	}

	return s.mutate(ctx, profileID, func(rec *Record) {
		rec.UserPreferences = mergeShallow(rec.UserPreferences, updates.UserPreferences)
		rec.HealthGoals = mergeShallow(rec.HealthGoals, updates.HealthGoals)
		rec.DietaryRestrictions = mergeShallow(rec.DietaryRestrictions, updates.DietaryRestrictions)
		rec.LifestyleContext = mergeShallow(rec.LifestyleContext, updates.LifestyleContext)
		rec.MedicalConditions = mergeShallow(rec.MedicalConditions, updates.MedicalConditions)
	})
}

// mutate performs one atomic read-modify-write: fresh read (creating the
// record first when absent), apply in memory, then a single UPDATE fenced on
// the memory_version that was read. The fenced UPDATE is a compare-and-set;
// zero rows affected means a concurrent writer advanced the version, so the
// whole cycle repeats with a fresh read.
func (s *Store) mutate(ctx context.Context, profileID string, apply func(*Record)) (*Record, error) {
	for attempt := 1; attempt <= maxFencingAttempts; attempt++ {
		rec, err := s.GetOrCreate(ctx, profileID)
		if err != nil {
			return nil, err
		}

		fence := rec.MemoryVersion
		apply(rec)
		rec.MemoryVersion = fence + 1

		args, err := updateArgs(profileID, fence, rec)
		if err != nil {
			return nil, err
		}

		tag, err := s.pool.Exec(ctx, updateMemorySQL, args...)
		if err != nil {
			return nil, fmt.Errorf("updating memory record: %w", err)
		}
		if tag.RowsAffected() == 1 {
			// Re-read so the caller sees the trigger-stamped updated_at.
			return s.Read(ctx, profileID)
		}

		s.logger.Debug("memory version conflict, retrying with fresh read",
			"profile_id", profileID, "fence", fence, "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: profile %s after %d attempts", ErrVersionConflict, profileID, maxFencingAttempts)
}

// updateArgs assembles the positional arguments for updateMemorySQL.
func updateArgs(profileID string, fence int, rec *Record) ([]any, error) {
	docs := make([][]byte, 0, 10)
	for _, d := range []Document{
		rec.UserPreferences, rec.HealthGoals, rec.DietaryRestrictions,
		rec.LifestyleContext, rec.MedicalConditions, rec.AnalysisInsights,
		rec.HealthTrends, rec.ImprovementAreas, rec.SuccessPatterns,
	} {
		b, err := marshalDoc(docOrEmpty(d))
		if err != nil {
			return nil, err
		}
		docs = append(docs, b)
	}

	nutrition, err := marshalDoc(rec.LastNutritionPlan)
	if err != nil {
		return nil, err
	}
	routine, err := marshalDoc(rec.LastRoutinePlan)
	if err != nil {
		return nil, err
	}

	return []any{
		profileID, fence,
		docs[0], docs[1], docs[2], docs[3], docs[4],
		rec.LastAnalysisDate, textOrNil(rec.LastAnalysisResult), docs[5],
		nutrition, routine,
		rec.NutritionPlanDate, rec.RoutinePlanDate,
		docs[6], docs[7], docs[8],
		rec.TotalAnalyses, rec.MemoryVersion,
	}, nil
}

// scanRecord scans one memory row, decoding JSONB columns into documents.
func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec        Record
		lastResult *string
		raw        [11]([]byte) // 9 NOT NULL documents + 2 nullable plans
	)

	err := row.Scan(
		&rec.ID, &rec.ProfileID,
		&raw[0], &raw[1], &raw[2], &raw[3], &raw[4],
		&rec.LastAnalysisDate, &lastResult, &raw[5],
		&raw[9], &raw[10], &rec.NutritionPlanDate, &rec.RoutinePlanDate,
		&raw[6], &raw[7], &raw[8],
		&rec.TotalAnalyses, &rec.MemoryVersion, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastResult != nil {
		rec.LastAnalysisResult = *lastResult
	}

	targets := []*Document{
		&rec.UserPreferences, &rec.HealthGoals, &rec.DietaryRestrictions,
		&rec.LifestyleContext, &rec.MedicalConditions, &rec.AnalysisInsights,
		&rec.HealthTrends, &rec.ImprovementAreas, &rec.SuccessPatterns,
	}
	for i, target := range targets {
		doc, err := unmarshalDoc(raw[i])
		if err != nil {
			return nil, fmt.Errorf("decoding document column %d: %w", i, err)
		}
		*target = docOrEmpty(doc)
	}

	if rec.LastNutritionPlan, err = unmarshalDoc(raw[9]); err != nil {
		return nil, fmt.Errorf("decoding nutrition plan: %w", err)
	}
	if rec.LastRoutinePlan, err = unmarshalDoc(raw[10]); err != nil {
		return nil, fmt.Errorf("decoding routine plan: %w", err)
	}

	return &rec, nil
}

// marshalDoc encodes a document for a JSONB column. Nil maps to SQL NULL,
// which only the nullable plan columns accept.
func marshalDoc(d Document) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return b, nil
}

// unmarshalDoc decodes a JSONB column. NULL yields a nil document.
func unmarshalDoc(b []byte) (Document, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// docOrEmpty normalizes nil to an empty document for NOT NULL columns.
func docOrEmpty(d Document) Document {
	if d == nil {
		return Document{}
	}
	return d
}

// textOrNil maps the empty string to SQL NULL for nullable text columns.
func textOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
