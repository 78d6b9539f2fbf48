// Package config loads settings from config.yaml and the environment.
//
// Non-secret settings live in YAML; secrets come only from the environment
// (optionally via a .env file). Defaults are applied after both sources so a
// missing file is never fatal. Required keys are checked by the Validate
// methods, one per command, since "run" needs no web credentials.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sakif/shortsgen/internal/apperror"
)

const (
	DefaultConfigPath = "config.yaml"

	defaultPort             = 8080
	defaultBaseURL          = "http://localhost:8080"
	defaultSessionTTL       = 24 * time.Hour
	defaultDBPath           = "data/shortsgen.db"
	defaultLogLevel         = "info"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1/"
	defaultOpenAIModel      = "gpt-3.5-turbo"
	defaultSystemPrompt     = "You are a helpful video script writer."
	defaultMaxTokens        = 500
	defaultTemperature      = 0.7
	defaultTavusBaseURL     = "https://tavusapi.com"
	defaultTrendsFeedURL    = "https://trends.google.com/trending/rss"
	defaultTrendsRegion     = "US"
	defaultTrendsLimit      = 5
	defaultGenerateSchedule = "@weekly"
	defaultReconcileSched   = "@every 15m"
	defaultProviderTimeout  = 60 * time.Second
	defaultMaxRetries       = 2
	defaultPrivacyStatus    = "private"
	defaultCategoryID       = "25" // News & Politics
	defaultLockTTL          = 2 * time.Hour
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Google    GoogleConfig    `yaml:"google"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Tavus     TavusConfig     `yaml:"tavus"`
	Trends    TrendsConfig    `yaml:"trends"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Providers ProvidersConfig `yaml:"providers"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig covers the HTTP listener and session signing.
type ServerConfig struct {
	Port       int           `yaml:"port"`
	BaseURL    string        `yaml:"base_url"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	JWTSecret  string        `yaml:"-"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the slog level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GoogleConfig holds the OAuth client used for login and uploads.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"-"`
	RedirectURL  string `yaml:"redirect_url"`
}

// OpenAIConfig shapes the chat completion request for scripts.
type OpenAIConfig struct {
	APIKey       string `yaml:"-"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTokens    int64  `yaml:"max_tokens"`
	// Temperature is a pointer so an explicit 0 survives defaulting.
	Temperature *float64 `yaml:"temperature"`
}

// TavusConfig selects the account and replica that render videos.
type TavusConfig struct {
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	ReplicaID string `yaml:"replica_id"`
}

// TrendsConfig points at the daily trends RSS feed.
type TrendsConfig struct {
	FeedURL string `yaml:"feed_url"`
	Region  string `yaml:"region"`
	Limit   int    `yaml:"limit"`
}

// ScheduleConfig holds cron specs for the two scheduled jobs.
type ScheduleConfig struct {
	Generate  string `yaml:"generate"`
	Reconcile string `yaml:"reconcile"`
}

// ProvidersConfig bounds every outbound call.
type ProvidersConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// YouTubeConfig controls automatic uploads of finished videos.
type YouTubeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	PrivacyStatus string   `yaml:"privacy_status"`
	CategoryID    string   `yaml:"category_id"`
	Tags          []string `yaml:"tags"`
}

// RedisConfig enables the distributed run lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// Load reads path (config.yaml when empty), then the environment, then
// applies defaults. A missing file is logged and skipped; a malformed one is
// an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	if path == "" {
		path = DefaultConfigPath
	}

	cfg := &Config{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("config file not found, using defaults", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// applyEnv loads secrets and lets a few deployment settings be overridden.
func applyEnv(cfg *Config) {
	cfg.Server.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Google.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Tavus.APIKey = os.Getenv("TAVUS_API_KEY")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.RedirectURL, "OAUTH_REDIRECT_URI")
	setString(&cfg.Tavus.ReplicaID, "TAVUS_REPLICA_ID")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			slog.Warn("ignoring invalid PORT", slog.String("value", v))
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaultBaseURL
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = defaultSessionTTL
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDBPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Google.RedirectURL == "" {
		cfg.Google.RedirectURL = cfg.Server.BaseURL + "/auth/google/callback"
	}

	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.OpenAI.SystemPrompt == "" {
		cfg.OpenAI.SystemPrompt = defaultSystemPrompt
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = defaultMaxTokens
	}
	if cfg.OpenAI.Temperature == nil {
		t := defaultTemperature
		cfg.OpenAI.Temperature = &t
	}

	if cfg.Tavus.BaseURL == "" {
		cfg.Tavus.BaseURL = defaultTavusBaseURL
	}

	if cfg.Trends.FeedURL == "" {
		cfg.Trends.FeedURL = defaultTrendsFeedURL
	}
	if cfg.Trends.Region == "" {
		cfg.Trends.Region = defaultTrendsRegion
	}
	if cfg.Trends.Limit <= 0 {
		cfg.Trends.Limit = defaultTrendsLimit
	}

	if cfg.Schedule.Generate == "" {
		cfg.Schedule.Generate = defaultGenerateSchedule
	}
	if cfg.Schedule.Reconcile == "" {
		cfg.Schedule.Reconcile = defaultReconcileSched
	}

	if cfg.Providers.Timeout <= 0 {
		cfg.Providers.Timeout = defaultProviderTimeout
	}
	// A negative max_retries disables retries; zero means unset.
	switch {
	case cfg.Providers.MaxRetries == 0:
		cfg.Providers.MaxRetries = defaultMaxRetries
	case cfg.Providers.MaxRetries < 0:
		cfg.Providers.MaxRetries = 0
	}

	if cfg.YouTube.PrivacyStatus == "" {
		cfg.YouTube.PrivacyStatus = defaultPrivacyStatus
	}
	if cfg.YouTube.CategoryID == "" {
		cfg.YouTube.CategoryID = defaultCategoryID
	}

	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = defaultLockTTL
	}
}

// ValidatePipeline checks what a generation or reconciliation run needs.
func (c *Config) ValidatePipeline() error {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Tavus.APIKey == "" {
		missing = append(missing, "TAVUS_API_KEY")
	}
	if c.Tavus.ReplicaID == "" {
		missing = append(missing, "TAVUS_REPLICA_ID")
	}
	if c.YouTube.Enabled {
		missing = append(missing, c.missingGoogle()...)
	}
	if len(missing) > 0 {
		return apperror.ConfigMissing(missing...)
	}
	return nil
}

// ValidateServer checks what "serve" needs: the pipeline plus web login.
func (c *Config) ValidateServer() error {
	var missing []string
	if err := c.ValidatePipeline(); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			missing = append(missing, strings.Split(appErr.Field, ",")...)
		}
	}
	if c.Server.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if !c.YouTube.Enabled {
		missing = append(missing, c.missingGoogle()...)
	}
	if len(missing) > 0 {
		return apperror.ConfigMissing(missing...)
	}
	return nil
}

func (c *Config) missingGoogle() []string {
	var missing []string
	if c.Google.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.Google.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	return missing
}

// LevelFromString maps a config log level to slog, defaulting to Info.
func LevelFromString(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
