package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one generation pass now and print its summary",
	Long: `Fetch the current trending topics and, for every user, generate as many
scripts and videos as their frequency asks for. The run summary is printed as
JSON on stdout.`,
	RunE: runGenerate,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Refresh the status of pending videos and upload finished ones",
	RunE:  runReconcile,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidatePipeline(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}

	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.orchestrator.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidatePipeline(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}

	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.reconciler.Reconcile(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
