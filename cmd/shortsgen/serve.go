package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/shortsgen/internal/auth"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/pipeline"
	"github.com/sakif/shortsgen/internal/scheduler"
	"github.com/sakif/shortsgen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web app and run the pipeline on its schedule",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}

	ctx := cmd.Context()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	tokens, err := auth.NewTokenService(cfg.Server.JWTSecret, cfg.Server.SessionTTL)
	if err != nil {
		return err
	}

	sched := scheduler.New(logger)
	if err := sched.Add("generate", cfg.Schedule.Generate, func(ctx context.Context) error {
		summary, err := a.orchestrator.Run(ctx)
		reportRun(logger, summary)
		return skipContended(logger, "generate", err)
	}); err != nil {
		return err
	}
	if err := sched.Add("reconcile", cfg.Schedule.Reconcile, func(ctx context.Context) error {
		_, err := a.reconciler.Reconcile(ctx)
		return skipContended(logger, "reconcile", err)
	}); err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:          cfg.Server.Port,
		SecureCookies: strings.HasPrefix(cfg.Server.BaseURL, "https://"),
	}, server.Deps{
		Users:     a.db,
		Jobs:      a.db,
		Tokens:    tokens,
		Google:    a.google,
		Scheduler: sched,
	}, logger)
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}

// reportRun logs a scheduled run's summary, with one line per outcome that
// failed or never reached the ledger.
func reportRun(logger *slog.Logger, summary *model.RunSummary) {
	if summary == nil {
		return
	}
	logger = logger.With(slog.String("run_id", summary.RunID))

	unrecorded := 0
	for _, o := range summary.Outcomes {
		if o.Status != model.JobFailed && o.Recorded {
			continue
		}
		if !o.Recorded {
			unrecorded++
		}
		logger.Warn("run outcome",
			slog.String("user_id", o.UserID),
			slog.String("topic", o.Topic),
			slog.String("status", string(o.Status)),
			slog.String("failure_kind", o.FailureKind),
			slog.String("error", o.Error),
			slog.Bool("recorded", o.Recorded),
		)
	}

	attrs := []any{
		slog.Int("topics", len(summary.Topics)),
		slog.Int("users", summary.Users),
		slog.Int("skipped", len(summary.Skipped)),
		slog.Int("succeeded", summary.Succeeded()),
		slog.Int("failed", summary.Failed()),
		slog.Int("unrecorded", unrecorded),
	}
	if summary.TrendError != "" {
		attrs = append(attrs, slog.String("trend_error", summary.TrendError))
	}
	if summary.UsersError != "" {
		attrs = append(attrs, slog.String("users_error", summary.UsersError))
	}
	logger.Info("run summary", attrs...)
}

// skipContended turns a lost lock race into a log line; the next tick retries.
func skipContended(logger *slog.Logger, job string, err error) error {
	if errors.Is(err, pipeline.ErrRunInProgress) {
		logger.Warn("previous run still in progress, skipping", slog.String("job", job))
		return nil
	}
	return err
}
