package service

import (
	"context"
	"fmt"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
)

// Page size bounds for List. A zero or negative limit means the default.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// JobPage is one page of a user's jobs with the limit and offset actually
// applied.
type JobPage struct {
	Jobs   []model.GenerationJob
	Limit  int
	Offset int
}

// JobService exposes a user's own generation history.
type JobService struct {
	jobs repository.JobRepository
}

// NewJobService returns a JobService reading from jobs.
func NewJobService(jobs repository.JobRepository) *JobService {
	return &JobService{jobs: jobs}
}

// List returns a page of userID's jobs, newest run first. Out of range
// options are clamped rather than rejected.
func (s *JobService) List(ctx context.Context, userID string, opts repository.ListOptions) (*JobPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	jobs, err := s.jobs.ListJobsByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/jobs: listing jobs for %s: %w", userID, err)
	}
	if jobs == nil {
		jobs = []model.GenerationJob{}
	}
	return &JobPage{Jobs: jobs, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// Get returns a job owned by userID. Another user's job is Forbidden.
func (s *JobService) Get(ctx context.Context, userID, id string) (*model.GenerationJob, error) {
	job, err := s.jobs.GetJobByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/jobs: fetching job %s: %w", id, err)
	}
	if job.UserID != userID {
		return nil, apperror.Forbidden("you do not have access to this job")
	}
	return job, nil
}
