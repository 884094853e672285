package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitalsync/healthd/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("healthd %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Temperature: %.2f\n", cfg.Temperature)
	fmt.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("  Window days: %d\n", cfg.WindowDays)
	fmt.Printf("  Database: %s:%d/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)

	// Never print the key itself, only the edges.
	apiKey := os.Getenv("OPENAI_API_KEY")
	if len(apiKey) >= 8 {
		fmt.Printf("  OPENAI_API_KEY: %s...%s (configured)\n", apiKey[:4], apiKey[len(apiKey)-4:])
	} else if apiKey != "" {
		fmt.Println("  OPENAI_API_KEY: configured")
	} else {
		fmt.Println("  OPENAI_API_KEY: Not set")
		fmt.Println()
		fmt.Println("Hint: set OPENAI_API_KEY to enable the analyze command")
	}

	return nil
}
