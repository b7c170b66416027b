package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/propscout/propscout/config"
)

var rootCmd = &cobra.Command{
	Use:   "propscout",
	Short: "propscout scrapes new-launch property listings into a local database.",
	Long: `propscout drives a headless browser through a paginated property
listing site, extracts per-project unit-mix tables and floor-plan galleries,
and persists them with idempotent upsert. Progress is checkpointed after
every item, so an interrupted run resumes at the exact page and item.`,
}

// ExecuteContext runs the command tree.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment config and initialises logging.
func loadConfig() *config.Config {
	cfg := config.Load()
	initLogger(cfg.Log)
	return cfg
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
