package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/cosmosbot/internal/app"
	"github.com/deusflow/cosmosbot/internal/config"
	"github.com/deusflow/cosmosbot/internal/logger"
	"github.com/deusflow/cosmosbot/internal/metrics"
)

// set with -ldflags "-X main.version=... -X main.commit=... -X main.date=..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagSources string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "cosmosbot",
	Short: "Space news auto-poster",
	Long: `cosmosbot collects space news from RSS feeds and the Spaceflight News API,
renders a themed 1200x630 post image and publishes one unseen item per cycle
to a Facebook group or a Telegram channel.

Configuration is read from environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSources, "sources", "", "path to the sources YAML file (overrides SOURCES_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	// bare invocation runs the scheduler
	rootCmd.RunE = runCmd.RunE

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(checkCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cosmosbot %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment, applying the persistent flags on top.
func loadConfig() (*config.Config, error) {
	if flagSources != "" {
		if err := os.Setenv("SOURCES_CONFIG_PATH", flagSources); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDebug {
		cfg.Debug = true
	}
	logger.Init(cfg.Debug)
	return cfg, nil
}

// loadApp builds the application. validate is set by commands that publish.
func loadApp(ctx context.Context, validate bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return app.New(ctx, cfg, metrics.Global)
}
