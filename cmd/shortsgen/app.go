package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sakif/shortsgen/internal/auth"
	"github.com/sakif/shortsgen/internal/config"
	"github.com/sakif/shortsgen/internal/httputil"
	"github.com/sakif/shortsgen/internal/lock"
	"github.com/sakif/shortsgen/internal/pipeline"
	"github.com/sakif/shortsgen/internal/provider/openai"
	"github.com/sakif/shortsgen/internal/provider/tavus"
	"github.com/sakif/shortsgen/internal/provider/trends"
	"github.com/sakif/shortsgen/internal/repository/sqlite"
	"github.com/sakif/shortsgen/internal/uploader"
)

// Uploads move whole video files, so they get more time than API calls.
const uploadTimeout = 10 * time.Minute

// app holds everything the commands share. close releases the database and
// the Redis client.
type app struct {
	db           *sqlite.DB
	google       *auth.GoogleProvider
	orchestrator *pipeline.Orchestrator
	reconciler   *pipeline.Reconciler
	closers      []func() error
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if dir := filepath.Dir(cfg.Database.Path); cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a := &app{db: db, closers: []func() error{db.Close}}

	locker, err := newLocker(ctx, cfg, logger, a)
	if err != nil {
		a.close()
		return nil, err
	}

	httpClient := httputil.NewRetryClient(&http.Client{}, httputil.RetryConfig{
		MaxRetries: cfg.Providers.MaxRetries,
	})

	trendSource := trends.NewGoogle(httpClient, cfg.Trends.FeedURL, cfg.Trends.Limit, cfg.Providers.Timeout,
		logger.With(slog.String("provider", "trends")))

	scripts := openai.NewScriptWriter(openai.Config{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.Model,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
		MaxTokens:    cfg.OpenAI.MaxTokens,
		Temperature:  cfg.OpenAI.Temperature,
		MaxRetries:   cfg.Providers.MaxRetries,
		Timeout:      cfg.Providers.Timeout,
	}, logger.With(slog.String("provider", "openai")))

	videos := tavus.NewClient(httpClient, tavus.Config{
		APIKey:    cfg.Tavus.APIKey,
		BaseURL:   cfg.Tavus.BaseURL,
		ReplicaID: cfg.Tavus.ReplicaID,
		Timeout:   cfg.Providers.Timeout,
	}, logger.With(slog.String("provider", "tavus")))

	a.google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)

	var up pipeline.Uploader
	if cfg.YouTube.Enabled {
		up = uploader.NewYouTube(a.google.Config(), httpClient, uploader.Config{
			PrivacyStatus: cfg.YouTube.PrivacyStatus,
			CategoryID:    cfg.YouTube.CategoryID,
			Tags:          cfg.YouTube.Tags,
			Timeout:       uploadTimeout,
		}, logger.With(slog.String("provider", "youtube")))
	}

	a.orchestrator = pipeline.NewOrchestrator(pipeline.Deps{
		Users:   db,
		Jobs:    db,
		Trends:  trendSource,
		Scripts: scripts,
		Videos:  videos,
		Locker:  locker,
	}, cfg.Trends.Region, logger)

	a.reconciler = pipeline.NewReconciler(db, db, videos, up, locker, logger)

	return a, nil
}

// newLocker uses Redis when configured so several processes can share one
// schedule; otherwise runs are only exclusive within this process.
func newLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger, a *app) (lock.Locker, error) {
	if cfg.Redis.Addr == "" {
		return lock.NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
	}
	a.closers = append(a.closers, client.Close)

	logger.Info("using redis run lock", slog.String("addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.LockTTL))
	return lock.NewRedis(client, cfg.Redis.LockTTL, logger.With(slog.String("component", "lock"))), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}
