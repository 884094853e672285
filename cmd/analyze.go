package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitalsync/healthd/internal/analysis"
	"github.com/vitalsync/healthd/internal/config"
	"github.com/vitalsync/healthd/internal/database"
	"github.com/vitalsync/healthd/internal/memory"
	"github.com/vitalsync/healthd/internal/profile"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <profile-id> <archetype>",
	Short: "Run one analysis workflow in the foreground",
	Long: `Runs the full analysis workflow for one profile: fetch health data,
analyze metrics, persist memory, and generate nutrition and routine plans.

Progress is printed line by line to stdout; the serve command spawns this
as a subprocess and relays those lines to clients.

Archetypes: ` + archetypeList(),
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runAnalyze(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func archetypeList() string {
	names := make([]string, 0, len(analysis.Archetypes()))
	for _, a := range analysis.Archetypes() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func runAnalyze(profileID, archetype string) error {
	if profileID == "" {
		return fmt.Errorf("profile ID is required")
	}
	if !analysis.ValidArchetype(archetype) {
		return fmt.Errorf("invalid archetype %q, valid: %s", archetype, archetypeList())
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateAnalysis(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	registry, err := profile.NewRegistry(pool, logger)
	if err != nil {
		return fmt.Errorf("creating profile registry: %w", err)
	}

	store, err := memory.NewStore(pool, registry, logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}

	engine, err := analysis.NewOpenAIEngine(analysis.OpenAIConfig{
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("creating analysis engine: %w", err)
	}

	coordinator, err := analysis.NewCoordinator(registry, store, engine, cfg.WindowDays, logger)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	return coordinator.Run(ctx, profileID, analysis.Archetype(archetype), os.Stdout)
}
