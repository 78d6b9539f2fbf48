package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/shortsgen/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "shortsgen",
	Short: "Turn trending topics into short videos",
	Long: `shortsgen signs users in with Google, lets them choose how many videos
they want per run, and on a schedule turns the current Google Trends topics
into scripts (OpenAI) and avatar videos (Tavus), optionally uploading the
finished videos to the user's YouTube channel.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig reads config and installs the default logger at the configured
// level (--verbose forces debug).
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := config.LevelFromString(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}
