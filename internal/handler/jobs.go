package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
	"github.com/sakif/shortsgen/internal/service"
)

// JobHandler serves a user's generation history.
type JobHandler struct {
	service *service.JobService
	logger  *slog.Logger
}

// NewJobHandler returns a JobHandler backed by svc.
func NewJobHandler(svc *service.JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{service: svc, logger: logger}
}

// JobListResponse wraps a page of jobs.
type JobListResponse struct {
	Jobs   []model.GenerationJob `json:"jobs"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// HandleList returns the current user's jobs, newest run first.
//
// HTTP: GET /api/jobs?limit=20&offset=0
func (h *JobHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, JobListResponse{Jobs: page.Jobs, Limit: page.Limit, Offset: page.Offset})
}

// HandleGetByID returns one of the current user's jobs.
//
// HTTP: GET /api/jobs/{id}
func (h *JobHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	job, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}
