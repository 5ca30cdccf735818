package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable. [os.LookupEnv] satisfies it;
// tests pass a map-backed function instead of mutating the process
// environment.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a map to a [LookupFunc].
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// ApplyEnv overlays environment variables onto cfg. Malformed values are
// errors rather than silently ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	env := envReader{lookup: lookup}

	env.setString(&cfg.LogLevel, "LAPOR_LOG_LEVEL")
	env.setString(&cfg.Environment, "APP_ENV")
	cfg.Environment = strings.ToLower(cfg.Environment)
	if v, ok := env.get("VERCEL"); ok {
		cfg.Serverless = v == "1"
	}
	env.setBool(&cfg.Serverless, "LAPOR_SERVERLESS")
	env.setString(&cfg.WebAddress, "LAPOR_WEB_ADDRESS")

	env.setString(&cfg.DatabaseURL, "DATABASE_URL")
	env.setString(&cfg.DBFilepath, "LAPOR_DB_FILEPATH")
	env.setInt32(&cfg.Pool.MaxConns, "LAPOR_DB_MAX_CONNS")
	env.setInt32(&cfg.Pool.MinConns, "LAPOR_DB_MIN_CONNS")
	env.setDuration(&cfg.Pool.AcquireTimeout, "LAPOR_DB_ACQUIRE_TIMEOUT")
	env.setDuration(&cfg.Pool.IdleTimeout, "LAPOR_DB_IDLE_TIMEOUT")
	env.setInt(&cfg.Init.MaxRetries, "LAPOR_DB_INIT_RETRIES")
	env.setDuration(&cfg.Init.Delay, "LAPOR_DB_INIT_DELAY")

	env.setString(&cfg.SessionSecret, "ADMIN_SESSION_SECRET")

	env.setString(&cfg.Seed.Email, "ADMIN_EMAIL", "SEED_ADMIN_EMAIL")
	env.setString(&cfg.Seed.Username, "ADMIN_USERNAME", "SEED_ADMIN_USERNAME")
	env.setString(&cfg.Seed.Password, "ADMIN_PASSWORD", "SEED_ADMIN_PASSWORD")

	return errors.Join(env.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

// get returns the first non-blank value among keys.
func (r *envReader) get(keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := r.lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func (r *envReader) setString(dst *string, keys ...string) {
	if v, ok := r.get(keys...); ok {
		*dst = v
	}
}

func (r *envReader) setBool(dst *bool, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func (r *envReader) setInt(dst *int, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (r *envReader) setInt32(dst *int32, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = int32(n)
}

func (r *envReader) setDuration(dst *time.Duration, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
