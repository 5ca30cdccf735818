package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stolasapp/lapor/internal/config"
	"github.com/stolasapp/lapor/internal/storage/db"
)

// Username validation constraints.
const (
	minUsernameLen = 3
	maxUsernameLen = 64
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validateUsername validates that a username meets the requirements:
// 3-64 characters, alphanumeric and underscores only.
func validateUsername(name string) bool {
	return len(name) >= minUsernameLen &&
		len(name) <= maxUsernameLen &&
		usernameRegex.MatchString(name)
}

func validateEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// DB is a [Store] backed by a SQL database.
type DB struct {
	handle         *db.Handle
	queries        *db.Queries
	acquireTimeout time.Duration
	now            func() time.Time
}

// NewDB resolves the backend profile for cfg, connects to it, and returns the
// store. Connection failures that outlast the configured retries are returned
// as a *[db.ConnectionError].
func NewDB(ctx context.Context, cfg config.Config, logger *slog.Logger) (*DB, error) {
	backend := config.ResolveBackend(cfg)
	handle, err := db.Open(ctx, logger, backend, db.RetryPolicy{
		MaxRetries: cfg.Init.MaxRetries,
		Delay:      cfg.Init.Delay,
	})
	if err != nil {
		return nil, err
	}
	return newDB(handle), nil
}

func newDB(handle *db.Handle) *DB {
	return &DB{
		handle:         handle,
		queries:        db.New(handle.DB, handle.Dialect),
		acquireTimeout: handle.AcquireTimeout,
		now:            time.Now,
	}
}

// Close satisfies the [Store] interface.
func (d *DB) Close() error {
	return d.handle.Close()
}

// Ping satisfies the [Store] interface.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.handle.PingContext(ctx)
}

// Migrate applies the schema migrations to the underlying database. Unlike
// the local file, external databases are only migrated through this method.
func (d *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	return db.Migrate(ctx, logger, d.handle.DB, d.handle.Dialect)
}

// GetAdminByEmail satisfies the [Admins] interface.
func (d *DB) GetAdminByEmail(ctx context.Context, email string) (db.Admin, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	admin, err := d.queries.GetAdminByEmail(ctx, NormalizeEmail(email))
	return admin, d.lookupErr(err)
}

// GetAdminByUsername satisfies the [Admins] interface.
func (d *DB) GetAdminByUsername(ctx context.Context, username string) (db.Admin, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	admin, err := d.queries.GetAdminByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	return admin, d.lookupErr(err)
}

// CreateAdmin satisfies the [Admins] interface. The email is stored
// normalized; it becomes the canonical subject of the admin's sessions.
func (d *DB) CreateAdmin(ctx context.Context, admin db.Admin) (db.Admin, error) {
	admin.Email = NormalizeEmail(admin.Email)
	if !validateEmail(admin.Email) {
		return admin, ErrInvalidEmail
	}
	admin.Username.String = strings.TrimSpace(admin.Username.String)
	admin.Username.Valid = admin.Username.String != ""
	if admin.Username.Valid && !validateUsername(admin.Username.String) {
		return admin, ErrInvalidUsername
	}
	if len(admin.PasswordHash) == 0 {
		return admin, fmt.Errorf("%w: missing password hash", ErrInternal)
	}
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = d.now().UTC()
	admin.UpdatedAt = admin.CreatedAt

	ctx, cancel := d.bound(ctx)
	defer cancel()
	switch _, err := d.queries.CreateAdmin(ctx, db.CreateAdminParams{
		ID:           admin.ID,
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: admin.PasswordHash,
		CreatedAt:    admin.CreatedAt,
	}); {
	case errors.Is(err, sql.ErrNoRows):
		return admin, ErrAlreadyExists
	case err != nil:
		return admin, fmt.Errorf("failed to create admin: %w", err)
	default:
		return admin, nil
	}
}

// ListAdmins satisfies the [Admins] interface.
func (d *DB) ListAdmins(ctx context.Context, afterEmail string, limit int32) ([]db.Admin, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.queries.ListAdmins(ctx, db.ListAdminsParams{
		AfterEmail: NormalizeEmail(afterEmail),
		Limit:      int64(limit),
	})
}

// bound limits an operation to the pool acquire timeout, the only blocking
// point of a request.
func (d *DB) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.acquireTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.acquireTimeout)
}

func (d *DB) lookupErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to look up admin: %w", err)
	}
}

var _ Store = (*DB)(nil)
