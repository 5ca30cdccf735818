// Package config handles resolving configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Deployment environments.
const (
	Development = "development"
	Production  = "production"
)

// DevSessionSecret is the session signing secret used when none is configured.
// It is only acceptable for local development; [Config.Validate] rejects it in
// production.
const DevSessionSecret = "dev-secret-change-me" //nolint:gosec // documented insecure fallback

// Config is the resolved runtime configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
	// Environment is either development or production. Production enables
	// secure cookies and refuses the insecure development secret.
	Environment string `yaml:"environment"`
	// Serverless marks a deployment on short-lived serverless workers, which
	// selects the managed-cloud database profile.
	Serverless bool `yaml:"serverless"`
	// WebAddress is the bind address of the HTTP server.
	WebAddress string `yaml:"web_address"`

	// DatabaseURL is the Postgres connection string. When empty, the local
	// SQLite file at DBFilepath is used instead.
	DatabaseURL string `yaml:"database_url"`
	DBFilepath  string `yaml:"db_filepath"`
	// Pool overrides the pool bounds of the selected backend profile. Zero
	// values keep the profile defaults.
	Pool PoolConfig `yaml:"pool"`
	// Init controls the startup connection check.
	Init InitConfig `yaml:"init"`

	// SessionSecret signs admin session tokens.
	SessionSecret string `yaml:"session_secret"`

	// Seed holds the values for the one-time admin provisioning command.
	Seed SeedConfig `yaml:"seed"`
}

// PoolConfig bounds the database connection pool.
type PoolConfig struct {
	MaxConns       int32         `yaml:"max_conns"`
	MinConns       int32         `yaml:"min_conns"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// InitConfig is the startup retry policy.
type InitConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Delay      time.Duration `yaml:"delay"`
}

// SeedConfig is the admin identity created by `admin seed`. The password is
// never written back anywhere.
type SeedConfig struct {
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
}

// Default returns a version of the config with all default values populated.
func Default() Config {
	return Config{
		LogLevel:      "info",
		Environment:   Development,
		WebAddress:    "localhost:3000",
		DBFilepath:    filepath.Join(xdg.DataHome, "lapor", "db.sqlite"),
		SessionSecret: DevSessionSecret,
		Init: InitConfig{
			MaxRetries: 3,
			Delay:      2 * time.Second,
		},
		Seed: SeedConfig{
			Email:    "admin@example.com",
			Username: "admin",
		},
	}
}

// DefaultPath is the location of the optional YAML configuration file.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "lapor.yaml")
}

// Load reads an optional YAML configuration file from path, merges it over
// the defaults, applies the environment from lookup, and validates the result.
// An empty path skips the file. A missing file is reported with an error
// wrapping [os.ErrNotExist].
func Load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		bytes, err := os.ReadFile(path) //nolint:gosec // allow the config file to be loaded from anywhere
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err = yaml.Unmarshal(bytes, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the config targets a production deployment.
func (c Config) IsProduction() bool {
	return c.Environment == Production
}

// InsecureSecret reports whether the development fallback secret is in use.
func (c Config) InsecureSecret() bool {
	return c.SessionSecret == DevSessionSecret
}

// LogValue satisfies [slog.LogValuer]. Secrets and the database URL, which
// may embed a password, are redacted.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log_level", c.LogLevel),
		slog.String("environment", c.Environment),
		slog.Bool("serverless", c.Serverless),
		slog.String("web_address", c.WebAddress),
		slog.Bool("database_url_set", c.DatabaseURL != ""),
		slog.String("db_filepath", c.DBFilepath),
		slog.Any("pool", c.Pool),
		slog.Any("init", c.Init),
		slog.Bool("insecure_secret", c.InsecureSecret()),
		slog.String("seed_email", c.Seed.Email),
	)
}

// Validate checks the config for completeness.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	switch c.Environment {
	case Development, Production:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.WebAddress == "" {
		errs = append(errs, errors.New("web_address is required"))
	}
	if c.DatabaseURL == "" && c.DBFilepath == "" {
		errs = append(errs, errors.New("one of database_url or db_filepath is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("session_secret is required"))
	} else if c.IsProduction() && c.InsecureSecret() {
		errs = append(errs, errors.New("session_secret must be set in production"))
	}
	if c.Pool.MaxConns < 0 || c.Pool.MinConns < 0 {
		errs = append(errs, errors.New("pool bounds must not be negative"))
	}
	if c.Pool.MaxConns > 0 && c.Pool.MinConns > c.Pool.MaxConns {
		errs = append(errs, errors.New("pool min_conns exceeds max_conns"))
	}
	if c.Init.MaxRetries < 0 {
		errs = append(errs, errors.New("init max_retries must not be negative"))
	}
	return errors.Join(errs...)
}
