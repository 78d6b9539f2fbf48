// Package pipeline turns trending topics into generation jobs for every user
// and reconciles those jobs with the video provider afterwards.
//
// A generation run is linear: one trend fetch, then for each user (in creation
// order) and each of that user's first Frequency topics, a script call, a
// video call and a ledger write. Failures are recorded per item and never
// abort the rest of the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/shortsgen/internal/lock"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/provider"
	"github.com/sakif/shortsgen/internal/repository"
)

// ErrRunInProgress is returned when another run holds the pipeline lock.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

// failureInternal marks failures that did not come from a provider adapter.
const failureInternal = "internal"

// Orchestrator runs generation passes: trends, then a script and a video per
// user topic, each recorded in the job ledger. Runs are serialized through
// the lock.KeyGenerate lock.
type Orchestrator struct {
	users   repository.UserRepository
	jobs    repository.JobRepository
	trends  provider.TrendSource
	scripts provider.ScriptGenerator
	videos  provider.VideoGenerator
	locker  lock.Locker
	region  string
	logger  *slog.Logger
	now     func() time.Time
}

// Deps are the Orchestrator's collaborators. Locker may be nil, in which case
// an in-process lock is used.
type Deps struct {
	Users   repository.UserRepository
	Jobs    repository.JobRepository
	Trends  provider.TrendSource
	Scripts provider.ScriptGenerator
	Videos  provider.VideoGenerator
	Locker  lock.Locker
}

// NewOrchestrator returns an Orchestrator that fetches trends for region.
func NewOrchestrator(deps Deps, region string, logger *slog.Logger) *Orchestrator {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	return &Orchestrator{
		users:   deps.Users,
		jobs:    deps.Jobs,
		trends:  deps.Trends,
		scripts: deps.Scripts,
		videos:  deps.Videos,
		locker:  locker,
		region:  region,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one generation run. The error is non-nil only when the run
// never started or was canceled midway. A failed trend fetch or user listing
// ends the run early with the cause in the summary, as do provider failures
// per item.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunSummary, error) {
	unlock, err := o.locker.TryLock(ctx, lock.KeyGenerate)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: acquiring run lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			o.logger.Error("failed to release run lock", slog.String("error", err.Error()))
		}
	}()

	summary := &model.RunSummary{
		RunID:     xid.New().String(),
		StartedAt: o.now(),
		Outcomes:  []model.JobOutcome{},
	}
	logger := o.logger.With(slog.String("run_id", summary.RunID))
	defer func() { summary.FinishedAt = o.now() }()

	topics, err := o.trends.Topics(ctx, o.region)
	if err != nil {
		summary.TrendError = err.Error()
		logger.Error("trend fetch failed, no jobs created", slog.String("error", err.Error()))
		return summary, nil
	}
	summary.Topics = topics
	logger.Info("run started", slog.Int("topics", len(topics)))

	users, err := o.users.ListUsers(ctx)
	if err != nil {
		summary.UsersError = err.Error()
		logger.Error("listing users failed, no jobs created", slog.String("error", err.Error()))
		return summary, nil
	}
	summary.Users = len(users)

	position := 0
	for _, user := range users {
		if user.Frequency < 1 {
			reason := fmt.Sprintf("invalid frequency %d", user.Frequency)
			summary.Skipped = append(summary.Skipped, model.SkippedUser{UserID: user.ID, Reason: reason})
			logger.Warn("skipping user", slog.String("user_id", user.ID), slog.String("reason", reason))
			continue
		}

		n := min(user.Frequency, len(topics))
		for _, topic := range topics[:n] {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("pipeline: run interrupted: %w", err)
			}
			summary.Outcomes = append(summary.Outcomes, o.process(ctx, logger, summary.RunID, position, user.ID, topic))
			position++
		}
	}

	logger.Info("run finished",
		slog.Int("users", summary.Users),
		slog.Int("skipped", len(summary.Skipped)),
		slog.Int("succeeded", summary.Succeeded()),
		slog.Int("failed", summary.Failed()),
	)

	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, runID string, position int, userID, topic string) model.JobOutcome {
	job := &model.GenerationJob{
		UserID:      userID,
		RunID:       runID,
		Position:    position,
		Topic:       topic,
		Title:       Title(topic),
		Description: Description(topic),
		Status:      model.JobPending,
	}
	logger = logger.With(slog.String("user_id", userID), slog.String("topic", topic))

	if err := o.generate(ctx, job); err != nil {
		job.Status = model.JobFailed
		job.Error = err.Error()
		job.FailureKind = string(provider.KindOf(err))
		if job.FailureKind == "" {
			job.FailureKind = failureInternal
		}
		logger.Warn("job failed",
			slog.String("failure_kind", job.FailureKind),
			slog.String("error", err.Error()),
		)
	}

	outcome := model.JobOutcome{
		UserID:      userID,
		Topic:       topic,
		Status:      job.Status,
		FailureKind: job.FailureKind,
		Error:       job.Error,
	}

	// The outcome must reach the ledger even if the run is being canceled.
	if err := o.jobs.CreateJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("failed to record job", slog.String("error", err.Error()))
		if outcome.Error == "" {
			outcome.Error = err.Error()
		}
		return outcome
	}

	outcome.JobID = job.ID
	outcome.Recorded = true
	return outcome
}

// generate runs script then video. On a video failure the script is kept on
// the job so it can be inspected.
func (o *Orchestrator) generate(ctx context.Context, job *model.GenerationJob) error {
	script, err := o.scripts.GenerateScript(ctx, job.Topic)
	if err != nil {
		return fmt.Errorf("generating script: %w", err)
	}
	job.Script = script

	video, err := o.videos.CreateVideo(ctx, provider.VideoRequest{
		Script:      script,
		Title:       job.Title,
		Description: job.Description,
	})
	if err != nil {
		return fmt.Errorf("creating video: %w", err)
	}

	id := video.ID
	job.ExternalID = &id
	return nil
}
