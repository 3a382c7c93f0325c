package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all agent configuration loaded from environment variables.
type Config struct {
	APIURL      string `env:"BEBOP_API_URL" envDefault:"http://localhost:8080/"`
	ExplorerURL string `env:"BEBOP_EXPLORER_URL" envDefault:"https://explorer.dbhub.org"`
	ListenAddr  string `env:"BEBOP_LISTEN_ADDR" envDefault:"127.0.0.1:7480"`

	StoreDriver string `env:"BEBOP_STORE_DRIVER" envDefault:"sqlite"`
	StoreDSN    string `env:"BEBOP_STORE_DSN"`

	HeadInterval time.Duration `env:"BEBOP_HEAD_INTERVAL" envDefault:"30s"`
	OpenBrowser  bool          `env:"BEBOP_OPEN_BROWSER" envDefault:"true"`
	LogLevel     string        `env:"BEBOP_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment (and an optional .env file)
// and validates required fields.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.StoreDSN == "" && cfg.StoreDriver == "sqlite" {
		dsn, err := defaultSQLitePath()
		if err != nil {
			return Config{}, err
		}
		cfg.StoreDSN = dsn
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("BEBOP_API_URL is invalid: %w", err)
	}
	if _, err := url.ParseRequestURI(c.ExplorerURL); err != nil {
		return fmt.Errorf("BEBOP_EXPLORER_URL is invalid: %w", err)
	}
	switch c.StoreDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("BEBOP_STORE_DRIVER must be sqlite or pgx, got %q", c.StoreDriver)
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("BEBOP_STORE_DSN is required")
	}
	if c.HeadInterval <= 0 {
		return fmt.Errorf("BEBOP_HEAD_INTERVAL must be positive")
	}
	return nil
}

func defaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir = filepath.Join(dir, "bebop")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(dir, "store.db"), nil
}
