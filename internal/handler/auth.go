package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/shortsgen/internal/auth"
	"github.com/sakif/shortsgen/internal/service"
)

const stateTTL = 10 * time.Minute

// OAuthProvider is the part of auth.GoogleProvider the login flow needs.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

var _ OAuthProvider = (*auth.GoogleProvider)(nil)

// AuthHandler runs the Google login flow and exposes the session user.
//
//   - HandleGoogleLogin    → redirect to Google's consent page
//   - HandleGoogleCallback → exchange the code, upsert the user, set the session cookie
//   - HandleLogout         → clear the session cookie
//   - HandleMe             → current user's profile
type AuthHandler struct {
	google  OAuthProvider
	service *service.AuthService
	tokens  *auth.TokenService
	secure  bool
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks cookies HTTPS-only.
func NewAuthHandler(
	google OAuthProvider,
	svc *service.AuthService,
	tokens *auth.TokenService,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		google:  google,
		service: svc,
		tokens:  tokens,
		secure:  secure,
		logger:  logger,
	}
}

// HandleGoogleLogin stores a random CSRF state in a short-lived cookie and
// redirects to Google.
//
// HTTP: GET /auth/google/login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the login.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	auth.ClearCookie(w, auth.StateCookie, h.secure)

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.service.LoginWithGoogle(r.Context(), gu)
	if err != nil {
		h.logger.Error("auth callback: login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.tokens.TTL(), h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie. The JWT itself stays valid until
// it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, auth.SessionCookie, h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: fetching user failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
