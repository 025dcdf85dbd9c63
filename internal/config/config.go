// Package config reads the runtime settings of the books tools from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

// Store kinds understood by blob.Open.
const (
	StoreMemory   = "memory"
	StoreDir      = "dir"
	StoreBolt     = "bolt"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreGCS      = "gcs"
)

// Config holds runtime settings. CLI flags override them.
type Config struct {
	SourcesPath string `env:"BOOKS_SOURCES" envDefault:"sources"`
	LedgerFile  string `env:"BOOKS_CONFIG" envDefault:"books.yaml"`
	OutputPath  string `env:"BOOKS_OUTPUT" envDefault:"out"`

	Store       string `env:"BOOKS_STORE" envDefault:"bolt"`
	StorePath   string `env:"BOOKS_STORE_PATH" envDefault:".books-cache"`
	RedisAddr   string `env:"BOOKS_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix string `env:"BOOKS_REDIS_PREFIX" envDefault:"books:"`
	PostgresURL string `env:"BOOKS_POSTGRES_URL"`
	GCSBucket   string `env:"BOOKS_GCS_BUCKET"`
	GCSPrefix   string `env:"BOOKS_GCS_PREFIX" envDefault:"books/"`

	Workers     int           `env:"BOOKS_WORKERS" envDefault:"4"`
	ScanTimeout time.Duration `env:"BOOKS_SCAN_TIMEOUT" envDefault:"30s"`
	Currency    string        `env:"BOOKS_CURRENCY" envDefault:"EUR"`
	LogLevel    string        `env:"BOOKS_LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreDir, StoreBolt:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("store %q requires BOOKS_REDIS_ADDR", c.Store)
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("store %q requires BOOKS_POSTGRES_URL", c.Store)
		}
	case StoreGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("store %q requires BOOKS_GCS_BUCKET", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
