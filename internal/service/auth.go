// Package service holds the business rules behind the HTTP handlers: login,
// per-user settings, and job history.
//
//	Handler (HTTP) → Service (rules) → Repository (SQLite)
//
// Services take repository interfaces so tests can inject in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/shortsgen/internal/auth"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
)

// AuthService turns a Google identity into a stored user and a session.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService returns an AuthService.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record with the session token issued for it.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginWithGoogle upserts the user identified by the Google subject, stores
// the OAuth grant for later uploads, and issues a session token.
//
// First login creates the user with the default frequency. Later logins
// refresh profile fields and tokens but keep the user's frequency; if Google
// omits the refresh token the stored one is kept.
func (s *AuthService) LoginWithGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil || gu.Subject == "" {
		return nil, errors.New("service/auth: Google user must have a subject")
	}

	user := &model.User{
		GoogleID: gu.Subject,
		Email:    gu.Email,
		Name:     gu.Name,
	}
	if gu.Token != nil {
		user.AccessToken = gu.Token.AccessToken
		user.RefreshToken = gu.Token.RefreshToken
		user.TokenExpiry = gu.Token.Expiry
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (googleID=%s): %w", gu.Subject, err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("upload_access", user.HasUploadAccess()),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID loads the user a session belongs to.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}
