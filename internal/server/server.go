// Package server wires handlers and middleware into a chi router and runs
// the HTTP server alongside the scheduler.
//
// Route table:
//
//	GET  /                      service status
//	GET  /auth/google/login     start Google login
//	GET  /auth/google/callback  finish Google login
//	POST /auth/logout           clear the session
//	GET  /api/me                current user            (session required)
//	GET  /api/settings          current settings        (session required)
//	PUT  /api/settings          update frequency        (session required)
//	GET  /api/jobs              own job history         (session required)
//	GET  /api/jobs/{id}         one job                 (session required)
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/shortsgen/internal/auth"
	"github.com/sakif/shortsgen/internal/handler"
	"github.com/sakif/shortsgen/internal/middleware"
	"github.com/sakif/shortsgen/internal/repository"
	"github.com/sakif/shortsgen/internal/scheduler"
	"github.com/sakif/shortsgen/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Config configures the HTTP listener.
type Config struct {
	Port int
	// SecureCookies marks session and state cookies HTTPS-only.
	SecureCookies bool
}

// Deps are the collaborators the server does not own. The caller closes the
// database after Start returns.
type Deps struct {
	Users  repository.UserRepository
	Jobs   repository.JobRepository
	Tokens *auth.TokenService
	Google handler.OAuthProvider
	// Scheduler is optional; when set it runs for the server's lifetime.
	Scheduler *scheduler.Scheduler
}

// Server is the HTTP API plus the optional scheduler it hosts.
type Server struct {
	router    *chi.Mux
	config    Config
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// New wires handlers and middleware. It fails when a required dependency
// is missing.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Users == nil || deps.Jobs == nil {
		return nil, errors.New("server: user and job repositories are required")
	}
	if deps.Tokens == nil || deps.Google == nil {
		return nil, errors.New("server: token service and Google provider are required")
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		scheduler: deps.Scheduler,
		logger:    logger,
	}
	s.setupRoutes(deps)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	authService := service.NewAuthService(deps.Users, deps.Tokens, s.logger)
	authHandler := handler.NewAuthHandler(deps.Google, authService, deps.Tokens, s.config.SecureCookies, s.logger)
	settingsHandler := handler.NewSettingsHandler(service.NewSettingsService(deps.Users, s.logger), s.logger)
	jobHandler := handler.NewJobHandler(service.NewJobService(deps.Jobs), s.logger)

	s.router.Get("/", handler.HandleStatus)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Tokens))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/settings", settingsHandler.HandleGet)
		r.Put("/settings", settingsHandler.HandleUpdate)
		r.Get("/jobs", jobHandler.HandleList)
		r.Get("/jobs/{id}", jobHandler.HandleGetByID)
	})
}

// Start serves HTTP and runs the scheduler until ctx is canceled, then shuts
// both down, giving in-flight requests and jobs 30 seconds to finish.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server: listening: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("server: graceful shutdown failed: %w", err)
	}
	if s.scheduler != nil {
		if err := s.scheduler.Stop(shutdownCtx); err != nil {
			s.logger.Warn("scheduler did not stop cleanly", slog.String("error", err.Error()))
		}
	}

	if serveErr == nil {
		s.logger.Info("server stopped gracefully")
	}
	return serveErr
}
