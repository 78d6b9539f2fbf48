package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/shortsgen/internal/lock"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/provider"
	"github.com/sakif/shortsgen/internal/repository"
)

// UploadResult is what a successful upload hands back. The token fields are
// set when the uploader had to refresh the user's access token.
type UploadResult struct {
	VideoID      string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Uploader publishes a ready job's video on the user's behalf.
type Uploader interface {
	Upload(ctx context.Context, user *model.User, job *model.GenerationJob) (*UploadResult, error)
}

// Reconciler polls the video provider for jobs still in flight and publishes
// the ones that become ready.
type Reconciler struct {
	users    repository.UserRepository
	jobs     repository.JobRepository
	videos   provider.VideoGenerator
	uploader Uploader
	locker   lock.Locker
	logger   *slog.Logger
}

// NewReconciler builds a Reconciler. A nil uploader leaves ready jobs ready.
func NewReconciler(users repository.UserRepository, jobs repository.JobRepository, videos provider.VideoGenerator,
	uploader Uploader, locker lock.Locker, logger *slog.Logger) *Reconciler {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Reconciler{
		users:    users,
		jobs:     jobs,
		videos:   videos,
		uploader: uploader,
		locker:   locker,
		logger:   logger,
	}
}

// Reconcile runs one pass over open jobs: it applies the provider's status to
// pending and generating jobs and, with an uploader configured, publishes
// ready ones. Per-job failures are counted in the summary; the error is
// non-nil only when the pass could not run.
func (r *Reconciler) Reconcile(ctx context.Context) (*model.ReconcileSummary, error) {
	unlock, err := r.locker.TryLock(ctx, lock.KeyReconcile)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: acquiring reconcile lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Error("failed to release reconcile lock", slog.String("error", err.Error()))
		}
	}()

	statuses := []model.JobStatus{model.JobPending, model.JobGenerating}
	if r.uploader != nil {
		statuses = append(statuses, model.JobReady)
	}

	jobs, err := r.jobs.ListJobsByStatus(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: listing open jobs: %w", err)
	}

	summary := &model.ReconcileSummary{}
	users := make(map[string]*model.User)

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("pipeline: reconcile interrupted: %w", err)
		}

		job := &jobs[i]
		summary.Checked++

		if needsRefresh(job) {
			changed, err := r.refresh(ctx, job)
			if err != nil {
				summary.Errors++
				r.logger.Warn("status check failed",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if changed {
				summary.Updated++
				if job.Status == model.JobFailed {
					summary.Failed++
				}
			}
		}

		if job.Status != model.JobReady || r.uploader == nil {
			continue
		}
		if job.VideoURL == "" {
			r.logger.Debug("ready job has no video url yet", slog.String("job_id", job.ID))
			continue
		}

		user, err := r.user(ctx, users, job.UserID)
		if err != nil {
			summary.Errors++
			r.logger.Error("failed to load job owner",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !user.HasUploadAccess() {
			continue
		}

		switch err := r.upload(ctx, user, job); {
		case err == nil:
			summary.Uploaded++
		case job.Status == model.JobFailed:
			summary.Failed++
			summary.Errors++
		default:
			summary.Errors++
		}
	}

	r.logger.Info("reconcile finished",
		slog.Int("checked", summary.Checked),
		slog.Int("updated", summary.Updated),
		slog.Int("uploaded", summary.Uploaded),
		slog.Int("failed", summary.Failed),
		slog.Int("errors", summary.Errors),
	)

	return summary, nil
}

// needsRefresh reports whether job's provider status must be read this pass.
// Ready jobs are re-read when they have no video URL or their last upload
// failed, since the provider may fill the URL in late or re-sign it.
func needsRefresh(job *model.GenerationJob) bool {
	if job.Status != model.JobReady {
		return true
	}
	return job.VideoURL == "" || job.Error != ""
}

// refresh applies the provider's current status to job and persists any
// change of status or video URL.
func (r *Reconciler) refresh(ctx context.Context, job *model.GenerationJob) (bool, error) {
	status, err := r.videos.GetVideo(ctx, *job.ExternalID)
	if err != nil {
		return false, err
	}

	prevURL := job.VideoURL
	next := job.Status
	switch status.State {
	case provider.VideoInProgress:
		next = model.JobGenerating
	case provider.VideoReady:
		next = model.JobReady
		if url := status.DownloadURL; url != "" {
			job.VideoURL = url
		} else if status.HostedURL != "" {
			job.VideoURL = status.HostedURL
		}
	case provider.VideoFailed:
		next = model.JobFailed
		job.FailureKind = "video"
		job.Error = status.Details
		if job.Error == "" {
			job.Error = "video provider reported status " + status.Status
		}
	default:
		r.logger.Warn("unrecognised video status",
			slog.String("job_id", job.ID),
			slog.String("status", status.Status),
		)
	}

	if next == job.Status && job.VideoURL == prevURL {
		return false, nil
	}

	r.logger.Info("job updated",
		slog.String("job_id", job.ID),
		slog.String("from", string(job.Status)),
		slog.String("to", string(next)),
		slog.Bool("video_url_changed", job.VideoURL != prevURL),
	)
	job.Status = next
	if err := r.jobs.UpdateJobStatus(ctx, job); err != nil {
		return false, fmt.Errorf("updating job: %w", err)
	}
	return true, nil
}

// upload publishes job. Auth failures are permanent and fail the job; other
// failures leave it ready for the next pass.
func (r *Reconciler) upload(ctx context.Context, user *model.User, job *model.GenerationJob) error {
	logger := r.logger.With(slog.String("job_id", job.ID), slog.String("user_id", user.ID))

	res, err := r.uploader.Upload(ctx, user, job)
	if err != nil {
		logger.Warn("upload failed", slog.String("error", err.Error()))
		job.Error = err.Error()
		if provider.KindOf(err) == provider.KindAuth {
			job.Status = model.JobFailed
			job.FailureKind = string(provider.KindAuth)
		}
		if uerr := r.jobs.UpdateJobStatus(ctx, job); uerr != nil {
			logger.Error("failed to record upload failure", slog.String("error", uerr.Error()))
		}
		return err
	}

	job.Status = model.JobUploaded
	job.YouTubeID = res.VideoID
	job.Error = ""
	if err := r.jobs.UpdateJobStatus(ctx, job); err != nil {
		logger.Error("failed to record upload", slog.String("error", err.Error()))
		return err
	}
	logger.Info("video uploaded", slog.String("youtube_id", res.VideoID))

	if res.AccessToken != "" && res.AccessToken != user.AccessToken {
		if err := r.users.UpdateTokens(ctx, user.ID, res.AccessToken, res.RefreshToken, res.Expiry); err != nil {
			logger.Error("failed to persist refreshed token", slog.String("error", err.Error()))
		} else {
			user.AccessToken = res.AccessToken
			if res.RefreshToken != "" {
				user.RefreshToken = res.RefreshToken
			}
			user.TokenExpiry = res.Expiry
		}
	}

	return nil
}

func (r *Reconciler) user(ctx context.Context, cache map[string]*model.User, id string) (*model.User, error) {
	if u, ok := cache[id]; ok {
		return u, nil
	}
	u, err := r.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = u
	return u, nil
}
