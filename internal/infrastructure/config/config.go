package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Artifact storage backends.
const (
	ArtifactBackendFilesystem = "filesystem"
	ArtifactBackendPostgres   = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabaseURL      string `env:"DATABASE_URL"       envDefault:""`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	DatabaseMinConns int    `env:"DATABASE_MIN_CONNS" envDefault:"2"`

	// Redis (optional - leave empty to disable idempotent regeneration)
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"60s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"120s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Rule catalog
	RulesDir string `env:"RULES_DIR" envDefault:""`

	// Artifacts
	ArtifactBackend string `env:"ARTIFACT_BACKEND" envDefault:"filesystem"`
	OutputDir       string `env:"OUTPUT_DIR"       envDefault:"./output"`
	UploadDir       string `env:"UPLOAD_DIR"       envDefault:""`
	MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE"  envDefault:"33554432"`

	// Batch
	MaxParallelRules int           `env:"MAX_PARALLEL_RULES" envDefault:"4"`
	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL"    envDefault:"24h"`

	// Retention
	RetentionPeriod   time.Duration `env:"RETENTION_PERIOD"   envDefault:"720h"`
	RetentionSchedule string        `env:"RETENTION_SCHEDULE" envDefault:"@daily"`
}

// Load reads an optional .env file and then parses environment variables.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.ArtifactBackend {
	case ArtifactBackendFilesystem:
		if c.OutputDir == "" {
			return errors.New("OUTPUT_DIR is required for the filesystem artifact backend")
		}
	case ArtifactBackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres artifact backend")
		}
	default:
		return errors.New("ARTIFACT_BACKEND must be filesystem or postgres")
	}

	if c.MaxParallelRules < 1 {
		return errors.New("MAX_PARALLEL_RULES must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}

	return nil
}
