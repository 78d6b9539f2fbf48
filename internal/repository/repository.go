// Package repository declares the storage interfaces the services and the
// pipeline depend on. internal/repository/sqlite is the only implementation.
package repository

import (
	"context"
	"time"

	"github.com/sakif/shortsgen/internal/model"
)

// ListOptions pages a listing.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the persisted user table; it is the only user registry.
type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// ListUsers returns every user ordered by creation time, then ID.
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateFrequency(ctx context.Context, id string, frequency int) error
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
}

// JobRepository is the generation job ledger.
type JobRepository interface {
	CreateJob(ctx context.Context, job *model.GenerationJob) error
	GetJobByID(ctx context.Context, id string) (*model.GenerationJob, error)
	// ListJobsByUser returns a user's jobs, newest run first, in iteration
	// order within a run.
	ListJobsByUser(ctx context.Context, userID string, opts ListOptions) ([]model.GenerationJob, error)
	// ListJobsByRun returns a run's jobs in iteration order.
	ListJobsByRun(ctx context.Context, runID string) ([]model.GenerationJob, error)
	// ListJobsByStatus returns jobs in any of the given statuses that have an
	// external ID, oldest first.
	ListJobsByStatus(ctx context.Context, statuses ...model.JobStatus) ([]model.GenerationJob, error)
	UpdateJobStatus(ctx context.Context, job *model.GenerationJob) error
}
