package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
)

var _ repository.JobRepository = (*DB)(nil)

const jobColumns = `id, user_id, run_id, position, topic, title, description, script,
	external_id, status, failure_kind, error, video_url, youtube_id, created_at, updated_at`

const (
	defaultJobLimit = 20
	maxJobLimit     = 100
)

// CreateJob appends an entry to the ledger. ID and timestamps are assigned
// here; the caller supplies everything else, including RunID and Position.
func (db *DB) CreateJob(ctx context.Context, job *model.GenerationJob) error {
	job.ID = xid.New().String()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO generation_jobs (`+jobColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.UserID,
		job.RunID,
		job.Position,
		job.Topic,
		job.Title,
		job.Description,
		job.Script,
		nullString(job.ExternalID),
		string(job.Status),
		job.FailureKind,
		job.Error,
		job.VideoURL,
		job.YouTubeID,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating job (user=%s, topic=%q): %w", job.UserID, job.Topic, err)
	}

	return nil
}

// GetJobByID retrieves a single ledger entry.
func (db *DB) GetJobByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = ?`, id,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("job", id)
		}
		return nil, fmt.Errorf("sqlite: getting job %s: %w", id, err)
	}
	return job, nil
}

// ListJobsByUser pages through a user's ledger, newest run first.
// run_id is an xid, so it sorts by creation time.
func (db *DB) ListJobsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.GenerationJob, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultJobLimit
	}
	if limit > maxJobLimit {
		limit = maxJobLimit
	}
	offset := max(opts.Offset, 0)

	return db.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		 WHERE user_id = ?
		 ORDER BY run_id DESC, position ASC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
}

// ListJobsByRun returns a run's ledger entries in iteration order.
func (db *DB) ListJobsByRun(ctx context.Context, runID string) ([]model.GenerationJob, error) {
	return db.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		 WHERE run_id = ?
		 ORDER BY position ASC`,
		runID,
	)
}

// ListJobsByStatus returns jobs awaiting reconciliation. Jobs without an
// external ID never reached the video provider and are skipped.
func (db *DB) ListJobsByStatus(ctx context.Context, statuses ...model.JobStatus) ([]model.GenerationJob, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}

	return db.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		 WHERE status IN (`+placeholders+`) AND external_id IS NOT NULL
		 ORDER BY created_at ASC, id ASC`,
		args...,
	)
}

// UpdateJobStatus writes the mutable reconciliation fields of a job.
func (db *DB) UpdateJobStatus(ctx context.Context, job *model.GenerationJob) error {
	job.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE generation_jobs
		 SET status = ?, failure_kind = ?, error = ?, video_url = ?, youtube_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(job.Status),
		job.FailureKind,
		job.Error,
		job.VideoURL,
		job.YouTubeID,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating job %s: %w", job.ID, err)
	}
	return requireOneRow(result, "job", job.ID)
}

func (db *DB) queryJobs(ctx context.Context, query string, args ...any) ([]model.GenerationJob, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.GenerationJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating jobs: %w", err)
	}

	return jobs, nil
}

func scanJob(s scanner) (*model.GenerationJob, error) {
	var (
		job        model.GenerationJob
		externalID sql.NullString
		status     string
	)
	err := s.Scan(
		&job.ID,
		&job.UserID,
		&job.RunID,
		&job.Position,
		&job.Topic,
		&job.Title,
		&job.Description,
		&job.Script,
		&externalID,
		&status,
		&job.FailureKind,
		&job.Error,
		&job.VideoURL,
		&job.YouTubeID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	if externalID.Valid {
		id := externalID.String
		job.ExternalID = &id
	}
	return &job, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
