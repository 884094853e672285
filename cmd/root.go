// Package cmd provides the healthd CLI commands.
//
// Commands:
//   - serve: HTTP API server with SSE analysis streaming
//   - analyze: run one analysis workflow as a foreground process
//   - migrate: apply database migrations
//   - version: show build and configuration information
//
// Signal handling and graceful shutdown are implemented for all long-running
// commands via context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitalsync/healthd/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "healthd",
	Short: "healthd - health analysis backend with per-profile memory",
	Long: `healthd serves a health-analysis API: it runs AI-powered analyses of
longitudinal health data, streams run progress over SSE, and accumulates
per-profile memory (context, insights, plans) in PostgreSQL.`,
	SilenceUsage: true,
}

// Execute runs the root command. Logging is initialized once here so every
// subcommand inherits the same slog default.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""}))

	return rootCmd.Execute()
}
