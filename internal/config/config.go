package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/futig/design-agent/internal/entity"
	pkgRetry "github.com/futig/design-agent/internal/pkg/retry"
	"github.com/futig/design-agent/internal/usecase/conversation"
	"github.com/futig/design-agent/internal/usecase/generation"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr           string        `env:"SERVER_ADDR" envDefault:":8080"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Storage configuration
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"design-agent.db"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	LLMCfg        LLMConfig        `envPrefix:"LLM_"`
	ScreenshotCfg ScreenshotConfig `envPrefix:"SCREENSHOT_"`
	ArtifactCfg   ArtifactConfig   `envPrefix:"ARTIFACT_"`
	WebhookCfg    WebhookConfig    `envPrefix:"WEBHOOK_"`

	// Core configuration
	GenerationCfg generation.Config   `envPrefix:"GENERATION_"`
	SessionCfg    conversation.Config `envPrefix:"SESSION_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	MaxConcurrentUsers int    `env:"MAX_CONCURRENT_USERS" envDefault:"100"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

type LLMConfig struct {
	GeminiAPIKey string          `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string          `env:"OPENAI_API_KEY"`
	OpenAIURL    string          `env:"OPENAI_BASE_URL"`
	Anthropic    AnthropicConfig `envPrefix:"ANTHROPIC_"`
}

type AnthropicConfig struct {
	HTTPClientConfig
	APIKey  string `env:"API_KEY"`
	Version string `env:"VERSION" envDefault:"2023-06-01"`
}

type ScreenshotConfig struct {
	HTTPClientConfig
	AccessKey string `env:"ACCESS_KEY"`
	CacheSize int    `env:"CACHE_SIZE" envDefault:"64"`
	Width     int    `env:"WIDTH" envDefault:"1920"`
	Height    int    `env:"HEIGHT" envDefault:"1080"`
	DelaySecs int    `env:"DELAY" envDefault:"5"`
}

// ArtifactConfig is optional: archiving is disabled while Endpoint is empty.
type ArtifactConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"design-agent"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
}

func (c ArtifactConfig) Enabled() bool {
	return c.Endpoint != ""
}

// WebhookConfig points at a Google Chat incoming webhook. Notifications are disabled while Url is empty.
type WebhookConfig struct {
	HTTPClientConfig
	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.Environment = *envFlag

	return cfg, nil
}

// Parse reads the configuration from the process environment and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Validate storage configuration
	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres storage driver")
		}
		if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
			errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
		}
		if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
			errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
		}
	case StorageSQLite:
		if cfg.SQLitePath == "" {
			errors = append(errors, "SQLITE_PATH is required for the sqlite storage driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("STORAGE_DRIVER must be postgres or sqlite, got %q", cfg.StorageDriver))
	}

	// Validate Telegram configuration
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}
	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}
	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout))
	}

	// Validate session and pacing configuration
	if cfg.SessionCfg.SessionLimit < 1 {
		errors = append(errors, fmt.Sprintf("SESSION_LIMIT must be at least 1, got %d", cfg.SessionCfg.SessionLimit))
	}
	if cfg.GenerationCfg.SameModelDelay < 0 || cfg.GenerationCfg.HTMLDelay < 0 {
		errors = append(errors, "GENERATION_SAME_MODEL_DELAY and GENERATION_HTML_DELAY must not be negative")
	}
	if cfg.GenerationCfg.ProgressTick <= 0 {
		errors = append(errors, fmt.Sprintf("GENERATION_PROGRESS_TICK must be positive, got %s", cfg.GenerationCfg.ProgressTick))
	}
	if cfg.GenerationCfg.Retry.Attempts < 1 {
		errors = append(errors, "GENERATION_RETRY_ATTEMPTS must be at least 1")
	}

	// Validate provider selection: every configured model needs its credentials
	if !cfg.EnableMocks {
		for name, ref := range map[string]entity.ModelRef{
			"GENERATION_AUDIT_MODEL":         cfg.GenerationCfg.AuditModel,
			"GENERATION_REFERENCE_MODEL":     cfg.GenerationCfg.ReferenceModel,
			"GENERATION_SPEC_MODEL":          cfg.GenerationCfg.SpecModel,
			"GENERATION_HTML_PRIMARY_MODEL":  cfg.GenerationCfg.HTMLPrimary,
			"GENERATION_HTML_FALLBACK_MODEL": cfg.GenerationCfg.HTMLFallback,
		} {
			if ref.IsZero() {
				continue
			}
			if missing := cfg.LLMCfg.missingKey(ref.Provider); missing != "" {
				errors = append(errors, fmt.Sprintf("%s uses %s but %s is empty", name, ref, missing))
			}
		}
		if cfg.ScreenshotCfg.AccessKey == "" {
			errors = append(errors, "SCREENSHOT_ACCESS_KEY is required unless ENABLE_MOCKS is set")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c LLMConfig) missingKey(p entity.Provider) string {
	switch p {
	case entity.ProviderGemini:
		if c.GeminiAPIKey == "" {
			return "LLM_GEMINI_API_KEY"
		}
	case entity.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return "LLM_OPENAI_API_KEY"
		}
	case entity.ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return "LLM_ANTHROPIC_API_KEY"
		}
	}
	return ""
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
