package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the scribe server.
type Config struct {
	Server    ServerConfig
	Queue     QueueConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	ASR       ASRConfig
	Upload    UploadConfig
}

type ServerConfig struct {
	Port int    `env:"SCRIBE_PORT" envDefault:"8080"`
	Env  string `env:"SCRIBE_ENV"  envDefault:"development"`
}

// QueueConfig controls the in-memory job queue and its retention sweep.
type QueueConfig struct {
	MaxJobs         int           `env:"QUEUE_MAX_JOBS"         envDefault:"100"`
	JobTTL          time.Duration `env:"QUEUE_JOB_TTL"          envDefault:"1h"`
	JobTimeout      time.Duration `env:"QUEUE_JOB_TIMEOUT"      envDefault:"0s"`
	ShutdownTimeout time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// DatabaseConfig is optional. Without a URL the server runs without API key
// auth and without the job archive.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
	MigrationsDir   string        `env:"DATABASE_MIGRATIONS_DIR"    envDefault:"migrations"`
}

type RedisConfig struct {
	URL       string        `env:"REDIS_URL"`
	StatusTTL time.Duration `env:"REDIS_STATUS_TTL" envDefault:"30m"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `env:"RATE_LIMIT_RPM" envDefault:"60"`
}

// ASRConfig selects and configures the speech recognition backend.
type ASRConfig struct {
	Provider string        `env:"ASR_PROVIDER" envDefault:"whisper"`
	Timeout  time.Duration `env:"ASR_TIMEOUT"  envDefault:"10m"`
	Whisper  WhisperConfig
	OpenAI   OpenAIConfig
}

type WhisperConfig struct {
	BaseURL   string `env:"WHISPER_BASE_URL"   envDefault:"http://localhost:5000"`
	ModelSize string `env:"WHISPER_MODEL_SIZE" envDefault:"base"`
}

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"  envDefault:"https://api.openai.com"`
	Model   string `env:"OPENAI_ASR_MODEL" envDefault:"whisper-1"`
}

// UploadConfig controls where submitted audio is staged before a handler
// picks it up.
type UploadConfig struct {
	Dir      string   `env:"UPLOAD_DIR"       envDefault:"/tmp/scribe"`
	MaxBytes int64    `env:"UPLOAD_MAX_BYTES" envDefault:"104857600"`
	Formats  []string `env:"UPLOAD_FORMATS"   envDefault:"wav,mp3,ogg,flac,m4a,webm" envSeparator:","`
}

var validProviders = map[string]bool{
	"whisper": true,
	"openai":  true,
	"mock":    true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is applied first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SCRIBE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Queue.MaxJobs <= 0 {
		return fmt.Errorf("QUEUE_MAX_JOBS must be positive, got %d", c.Queue.MaxJobs)
	}
	if c.Queue.JobTTL <= 0 {
		return fmt.Errorf("QUEUE_JOB_TTL must be positive, got %s", c.Queue.JobTTL)
	}
	if c.Queue.JobTimeout < 0 {
		return fmt.Errorf("QUEUE_JOB_TIMEOUT must not be negative, got %s", c.Queue.JobTimeout)
	}

	if c.Database.URL != "" && !hasScheme(c.Database.URL, "postgres://", "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}
	if c.Redis.URL != "" && !hasScheme(c.Redis.URL, "redis://", "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}

	if !validProviders[c.ASR.Provider] {
		return fmt.Errorf("ASR_PROVIDER must be one of whisper, openai, mock; got %q", c.ASR.Provider)
	}
	if c.ASR.Provider == "whisper" && !hasScheme(c.ASR.Whisper.BaseURL, "http://", "https://") {
		return fmt.Errorf("WHISPER_BASE_URL must start with http:// or https://, got %q", c.ASR.Whisper.BaseURL)
	}
	if c.ASR.Provider == "openai" && c.ASR.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when ASR_PROVIDER is openai")
	}

	if c.Upload.Dir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if len(c.Upload.Formats) == 0 {
		return fmt.Errorf("UPLOAD_FORMATS must list at least one extension")
	}

	return nil
}

// IsProduction reports whether the server runs with SCRIBE_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func hasScheme(url string, schemes ...string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(url, s) {
			return true
		}
	}
	return false
}
