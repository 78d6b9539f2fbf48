// Package scheduler runs the pipeline's periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a scheduled unit of work. It receives the scheduler's context,
// which is canceled on Stop.
type JobFunc func(ctx context.Context) error

// Scheduler runs named jobs on cron specs and skips a tick while the
// previous run of the same job is still going.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a stopped Scheduler. Call Add, then Start.
func New(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger.With(slog.String("component", "cron"))}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under spec (standard five-field cron or a descriptor such
// as "@weekly" or "@every 15m"). A run overlapping the previous one is skipped.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Info("scheduled job started", slog.String("job", name))

		if err := fn(s.ctx); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
				slog.Duration("took", time.Since(start)),
			)
			return
		}

		s.logger.Info("scheduled job finished",
			slog.String("job", name),
			slog.Duration("took", time.Since(start)),
		)
	})
	if err != nil {
		return fmt.Errorf("scheduler: adding %s (%q): %w", name, spec, err)
	}

	s.logger.Info("job scheduled", slog.String("job", name), slog.String("spec", spec))
	return nil
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and cancels running jobs, then waits for them until
// ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: waiting for running jobs: %w", ctx.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = cronLogger{}

// Info is very chatty in cron (every wake-up), so it goes to debug.
func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error logs cron failures, including recovered panics.
func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
