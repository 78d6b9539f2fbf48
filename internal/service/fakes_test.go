package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo mirrors the SQLite upsert rules in memory.
type fakeUserRepo struct {
	users      map[string]*model.User
	byGoogleID map[string]*model.User
	nextID     int
	upsertErr  error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:      make(map[string]*model.User),
		byGoogleID: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGoogleID[user.GoogleID]; ok {
		existing.Email = user.Email
		existing.Name = user.Name
		if user.AccessToken != "" {
			existing.AccessToken = user.AccessToken
			existing.TokenExpiry = user.TokenExpiry
		}
		if user.RefreshToken != "" {
			existing.RefreshToken = user.RefreshToken
		}
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	if user.Frequency == 0 {
		user.Frequency = model.DefaultFrequency
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.byGoogleID[user.GoogleID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateFrequency(_ context.Context, id string, frequency int) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Frequency = frequency
	return nil
}

func (f *fakeUserRepo) UpdateTokens(_ context.Context, id, access, refresh string, expiry time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.AccessToken = access
	if refresh != "" {
		u.RefreshToken = refresh
	}
	u.TokenExpiry = expiry
	return nil
}

type fakeJobRepo struct {
	jobs     map[string]*model.GenerationJob
	lastOpts repository.ListOptions
}

var _ repository.JobRepository = (*fakeJobRepo)(nil)

func newFakeJobRepo(jobs ...model.GenerationJob) *fakeJobRepo {
	f := &fakeJobRepo{jobs: make(map[string]*model.GenerationJob)}
	for i := range jobs {
		j := jobs[i]
		f.jobs[j.ID] = &j
	}
	return f
}

func (f *fakeJobRepo) CreateJob(_ context.Context, job *model.GenerationJob) error {
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeJobRepo) GetJobByID(_ context.Context, id string) (*model.GenerationJob, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, apperror.NotFound("job", id)
	}
	copied := *j
	return &copied, nil
}

func (f *fakeJobRepo) ListJobsByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.GenerationJob, error) {
	f.lastOpts = opts
	var out []model.GenerationJob
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) ListJobsByRun(context.Context, string) ([]model.GenerationJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListJobsByStatus(context.Context, ...model.JobStatus) ([]model.GenerationJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateJobStatus(_ context.Context, job *model.GenerationJob) error {
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}
