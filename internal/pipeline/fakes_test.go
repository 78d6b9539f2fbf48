package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/provider"
	"github.com/sakif/shortsgen/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// IN-MEMORY REPOSITORIES
// =========================================================================

type memUsers struct {
	users       []model.User
	listErr     error
	tokenWrites int
}

var _ repository.UserRepository = (*memUsers)(nil)

func (m *memUsers) Upsert(_ context.Context, u *model.User) error {
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (m *memUsers) ListUsers(_ context.Context) ([]model.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.User(nil), m.users...), nil
}

func (m *memUsers) UpdateFrequency(_ context.Context, id string, f int) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Frequency = f
			return nil
		}
	}
	return apperror.NotFound("user", id)
}

func (m *memUsers) UpdateTokens(_ context.Context, id, access, refresh string, expiry time.Time) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].AccessToken = access
			if refresh != "" {
				m.users[i].RefreshToken = refresh
			}
			m.users[i].TokenExpiry = expiry
			m.tokenWrites++
			return nil
		}
	}
	return apperror.NotFound("user", id)
}

// memLedger keeps jobs in insertion order.
type memLedger struct {
	mu        sync.Mutex
	jobs      []model.GenerationJob
	nextID    int
	createErr error
	updates   int
}

var _ repository.JobRepository = (*memLedger)(nil)

func (m *memLedger) CreateJob(_ context.Context, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	job.ID = fmt.Sprintf("job-%d", m.nextID)
	m.jobs = append(m.jobs, *job)
	return nil
}

func (m *memLedger) GetJobByID(_ context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, apperror.NotFound("job", id)
}

func (m *memLedger) ListJobsByUser(_ context.Context, userID string, _ repository.ListOptions) ([]model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GenerationJob
	for _, j := range m.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memLedger) ListJobsByRun(_ context.Context, runID string) ([]model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GenerationJob
	for _, j := range m.jobs {
		if j.RunID == runID {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Position < out[b].Position })
	return out, nil
}

func (m *memLedger) ListJobsByStatus(_ context.Context, statuses ...model.JobStatus) ([]model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GenerationJob
	for _, j := range m.jobs {
		if j.ExternalID == nil {
			continue
		}
		for _, s := range statuses {
			if j.Status == s {
				out = append(out, j)
				break
			}
		}
	}
	return out, nil
}

func (m *memLedger) UpdateJobStatus(_ context.Context, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == job.ID {
			m.jobs[i] = *job
			m.updates++
			return nil
		}
	}
	return apperror.NotFound("job", job.ID)
}

func (m *memLedger) all() []model.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.GenerationJob(nil), m.jobs...)
}

// =========================================================================
// STUB PROVIDERS
// =========================================================================

type stubTrends struct {
	topics []string
	err    error
	calls  int
}

func (s *stubTrends) Topics(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return s.topics, s.err
}

type stubScripts struct {
	failOn map[string]error
	calls  []string
}

func (s *stubScripts) GenerateScript(_ context.Context, topic string) (string, error) {
	s.calls = append(s.calls, topic)
	if err, ok := s.failOn[topic]; ok {
		return "", err
	}
	return "script about " + topic, nil
}

type stubVideos struct {
	failOn   map[string]error
	requests []provider.VideoRequest
	statuses map[string]*provider.VideoStatus
	getErr   error
	n        int
}

func (s *stubVideos) CreateVideo(_ context.Context, req provider.VideoRequest) (*provider.VideoJob, error) {
	s.requests = append(s.requests, req)
	for topic, err := range s.failOn {
		if req.Title == Title(topic) {
			return nil, err
		}
	}
	s.n++
	return &provider.VideoJob{ID: fmt.Sprintf("vid-%d", s.n), Status: "queued"}, nil
}

func (s *stubVideos) GetVideo(_ context.Context, id string) (*provider.VideoStatus, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	st, ok := s.statuses[id]
	if !ok {
		return nil, provider.StatusFailure("tavus", 404, "not found")
	}
	return st, nil
}

type stubUploader struct {
	err    error
	result *UploadResult
	calls  []string
}

func (s *stubUploader) Upload(_ context.Context, user *model.User, job *model.GenerationJob) (*UploadResult, error) {
	s.calls = append(s.calls, job.ID)
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &UploadResult{VideoID: "yt-" + job.ID}, nil
}

var errBoom = errors.New("boom")
