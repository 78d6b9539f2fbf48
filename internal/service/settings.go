package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
)

// Settings is the user-editable configuration.
type Settings struct {
	Frequency      int  `json:"frequency"`
	MaxFrequency   int  `json:"maxFrequency"`
	UploadsEnabled bool `json:"uploadsEnabled"`
}

// SettingsService reads and validates per-user settings.
type SettingsService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewSettingsService returns a SettingsService.
func NewSettingsService(users repository.UserRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{users: users, logger: logger}
}

// Get returns userID's current settings.
func (s *SettingsService) Get(ctx context.Context, userID string) (*Settings, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/settings: fetching user %s: %w", userID, err)
	}
	return settingsOf(user), nil
}

// UpdateFrequency sets how many videos the user gets per run, 1 to
// model.MaxFrequency inclusive.
func (s *SettingsService) UpdateFrequency(ctx context.Context, userID string, frequency int) (*Settings, error) {
	if !model.ValidFrequency(frequency) {
		return nil, apperror.ValidationFailed("frequency",
			fmt.Sprintf("frequency must be between 1 and %d", model.MaxFrequency))
	}

	if err := s.users.UpdateFrequency(ctx, userID, frequency); err != nil {
		return nil, fmt.Errorf("service/settings: updating frequency for %s: %w", userID, err)
	}

	s.logger.Info("frequency updated", slog.String("user_id", userID), slog.Int("frequency", frequency))

	return s.Get(ctx, userID)
}

func settingsOf(u *model.User) *Settings {
	return &Settings{
		Frequency:      u.Frequency,
		MaxFrequency:   model.MaxFrequency,
		UploadsEnabled: u.HasUploadAccess(),
	}
}
