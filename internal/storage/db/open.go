// Package db contains the SQL statements, connection handling, and schema
// migrations used by the storage package.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // sqlite sql.DB driver initialization

	"github.com/stolasapp/lapor/internal/config"
)

// Dialect identifies the SQL flavor of a [Handle].
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// Handle is an open, verified connection pool. It owns every resource opened
// for it and must be closed by the caller.
type Handle struct {
	*sql.DB

	// Dialect is the SQL flavor of the backend.
	Dialect Dialect
	// Backend is the profile the handle was opened with.
	Backend config.Backend
	// AcquireTimeout bounds how long a single operation may wait on the pool.
	AcquireTimeout time.Duration

	pool *pgxpool.Pool
}

// Close releases the connection pool.
func (h *Handle) Close() error {
	err := h.DB.Close()
	if h.pool != nil {
		h.pool.Close()
	}
	return err
}

// Open connects to the backend, verifies connectivity with [Initialize]
// according to policy, and, for a [config.LocalFile] only, migrates the
// schema to the current version. External databases are never altered here;
// see [Migrate].
func Open(ctx context.Context, logger *slog.Logger, backend config.Backend, policy RetryPolicy) (*Handle, error) {
	var (
		handle *Handle
		err    error
	)
	switch b := backend.(type) {
	case config.LocalFile:
		handle, err = openSQLite(b.Path)
	case config.ManagedCloud:
		handle, err = openPostgres(ctx, b.URL, b.Pool, "require")
	case config.GenericPostgres:
		sslMode := ""
		if b.RelaxedTLS {
			sslMode = "require"
		}
		handle, err = openPostgres(ctx, b.URL, b.Pool, sslMode)
	default:
		return nil, fmt.Errorf("unsupported database backend %T", backend)
	}
	if err != nil {
		return nil, err
	}
	handle.Backend = backend
	handle.AcquireTimeout = backend.PoolSettings().AcquireTimeout

	logger = logger.With(slog.String("backend", backend.Name()))
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = handle.AcquireTimeout
	}
	if _, err = Initialize(ctx, logger, handle, policy); err != nil {
		return nil, errors.Join(err, handle.Close())
	}

	if handle.Dialect != SQLite {
		logger.InfoContext(ctx, "skipping schema migration for external database")
		return handle, nil
	}
	if err = Migrate(ctx, logger, handle.DB, handle.Dialect); err != nil {
		return nil, errors.Join(err, handle.Close())
	}
	return handle, nil
}

func openSQLite(dbPath string) (*Handle, error) {
	if dbPath == ":memory:" { //nolint:revive // for documentation
		// noop
	} else if _, err := os.Stat(dbPath); err != nil {
		const userOnlyDirPerms = 0o700
		if err = os.MkdirAll(filepath.Dir(dbPath), userOnlyDirPerms); err != nil {
			return nil, fmt.Errorf("failed to create db parent directory: %w", err)
		}
	}

	if strings.ContainsRune(dbPath, '?') {
		dbPath += "&"
	} else {
		dbPath += "?"
	}
	dbPath += "_time_format=sqlite" +
		"&_pragma=journal_mode(WAL)" + // allow concurrent readers
		"&_pragma=synchronous(normal)" + // don't wait for fsync except on checkpointing
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(on)"

	handle, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handler: %w", err)
	}
	handle.SetMaxOpenConns(1)
	return &Handle{DB: handle, Dialect: SQLite}, nil
}

func openPostgres(ctx context.Context, dsn string, pool config.Pool, sslMode string) (*Handle, error) {
	if sslMode != "" {
		var err error
		if dsn, err = withSSLMode(dsn, sslMode); err != nil {
			return nil, err
		}
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if pool.MaxConns > 0 {
		pcfg.MaxConns = pool.MaxConns
	}
	if pool.MinConns >= 0 {
		pcfg.MinConns = pool.MinConns
	}
	if pool.IdleTimeout > 0 {
		pcfg.MaxConnIdleTime = pool.IdleTimeout
	}

	// the pool connects lazily, so this does not block on an unreachable host
	pgPool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	handle := stdlib.OpenDBFromPool(pgPool)
	handle.SetMaxOpenConns(int(pcfg.MaxConns))
	return &Handle{DB: handle, Dialect: Postgres, pool: pgPool}, nil
}

// withSSLMode sets sslmode on dsn unless the operator already chose one.
// Both URL and keyword/value connection strings are supported.
func withSSLMode(dsn, mode string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse database URL: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", mode)
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}
	if strings.Contains(dsn, "sslmode=") {
		return dsn, nil
	}
	return strings.TrimSpace(dsn + " sslmode=" + mode), nil
}
