package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/shortsgen/internal/service"
)

// SettingsHandler reads and updates the current user's settings.
type SettingsHandler struct {
	service *service.SettingsService
	logger  *slog.Logger
}

// NewSettingsHandler returns a SettingsHandler backed by svc.
func NewSettingsHandler(svc *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{service: svc, logger: logger}
}

// UpdateSettingsRequest is the body of PUT /api/settings.
type UpdateSettingsRequest struct {
	Frequency int `json:"frequency"`
}

// HandleGet returns the current user's settings.
//
// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	settings, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load settings", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// HandleUpdate changes the number of videos generated per run.
//
// HTTP: PUT /api/settings
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "Request body must be valid JSON",
		})
		return
	}

	settings, err := h.service.UpdateFrequency(r.Context(), userID, req.Frequency)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
