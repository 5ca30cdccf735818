package config

import (
	"net/url"
	"strings"
	"time"
)

// managedSSLHosts are hosted Postgres providers whose certificates are not
// verifiable with the system roots. Connections to them are encrypted but not
// verified.
var managedSSLHosts = []string{"render.com"}

// Pool holds the connection pool bounds of a backend profile.
type Pool struct {
	// MaxConns bounds concurrent connections. It is the only admission
	// control: once exhausted, callers wait up to AcquireTimeout.
	MaxConns int32
	// MinConns is the number of idle connections kept open.
	MinConns int32
	// AcquireTimeout bounds how long an operation may wait for a connection.
	AcquireTimeout time.Duration
	// IdleTimeout evicts connections idle for longer than this.
	IdleTimeout time.Duration
}

// Backend is the database profile chosen for a deployment. It is one of
// [LocalFile], [ManagedCloud], or [GenericPostgres].
type Backend interface {
	// Name identifies the profile in logs.
	Name() string
	// PoolSettings returns the pool bounds of the profile.
	PoolSettings() Pool

	backend()
}

// LocalFile is a SQLite database file, used when no connection string is
// configured. It is the only backend whose schema is migrated on startup.
type LocalFile struct {
	Path string
}

// ManagedCloud is Postgres reached from serverless workers. The pool is kept
// small so bursts of short-lived workers do not exhaust the provider's
// connection quota.
type ManagedCloud struct {
	URL  string
	Pool Pool
}

// GenericPostgres is a long-running Postgres deployment.
type GenericPostgres struct {
	URL  string
	Pool Pool
	// RelaxedTLS requires SSL without certificate verification. It is only
	// set for known managed providers.
	RelaxedTLS bool
}

// Name satisfies [Backend].
func (LocalFile) Name() string { return "sqlite" }

// Name satisfies [Backend].
func (ManagedCloud) Name() string { return "managed-postgres" }

// Name satisfies [Backend].
func (GenericPostgres) Name() string { return "postgres" }

// PoolSettings satisfies [Backend]. SQLite is limited to a single writer.
func (LocalFile) PoolSettings() Pool {
	return Pool{MaxConns: 1, AcquireTimeout: DefaultPool().AcquireTimeout}
}

// PoolSettings satisfies [Backend].
func (b ManagedCloud) PoolSettings() Pool { return b.Pool }

// PoolSettings satisfies [Backend].
func (b GenericPostgres) PoolSettings() Pool { return b.Pool }

func (LocalFile) backend()       {}
func (ManagedCloud) backend()    {}
func (GenericPostgres) backend() {}

// DefaultPool returns the pool bounds of the [GenericPostgres] profile.
func DefaultPool() Pool {
	return Pool{
		MaxConns:       5,
		MinConns:       0,
		AcquireTimeout: 30 * time.Second,
		IdleTimeout:    10 * time.Second,
	}
}

// ServerlessPool returns the pool bounds of the [ManagedCloud] profile.
func ServerlessPool() Pool {
	return Pool{
		MaxConns:       2,
		MinConns:       0,
		AcquireTimeout: 10 * time.Second,
		IdleTimeout:    5 * time.Second,
	}
}

// ResolveBackend selects the database profile for cfg:
//
//   - no DatabaseURL: [LocalFile]
//   - serverless or production: [ManagedCloud]
//   - otherwise: [GenericPostgres], with relaxed TLS for known managed hosts
//
// Pool overrides in cfg replace the profile defaults field by field.
func ResolveBackend(cfg Config) Backend {
	switch {
	case cfg.DatabaseURL == "":
		return LocalFile{Path: cfg.DBFilepath}
	case cfg.Serverless || cfg.IsProduction():
		return ManagedCloud{
			URL:  cfg.DatabaseURL,
			Pool: cfg.Pool.merge(ServerlessPool()),
		}
	default:
		return GenericPostgres{
			URL:        cfg.DatabaseURL,
			Pool:       cfg.Pool.merge(DefaultPool()),
			RelaxedTLS: isManagedSSLHost(cfg.DatabaseURL),
		}
	}
}

func (p PoolConfig) merge(def Pool) Pool {
	if p.MaxConns > 0 {
		def.MaxConns = p.MaxConns
	}
	if p.MinConns > 0 {
		def.MinConns = p.MinConns
	}
	if p.AcquireTimeout > 0 {
		def.AcquireTimeout = p.AcquireTimeout
	}
	if p.IdleTimeout > 0 {
		def.IdleTimeout = p.IdleTimeout
	}
	return def
}

func isManagedSSLHost(dsn string) bool {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, managed := range managedSSLHosts {
		if host == managed || strings.HasSuffix(host, "."+managed) {
			return true
		}
	}
	return false
}
