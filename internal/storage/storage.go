// Package storage provides typed access to the admin credential records.
package storage

import (
	"context"
	"strings"

	"github.com/stolasapp/lapor/internal/storage/db"
)

const (
	// ErrNotFound is returned when an admin cannot be found.
	ErrNotFound Error = "not found"
	// ErrAlreadyExists is returned if the email or username is already in use.
	ErrAlreadyExists Error = "already exists"
	// ErrInvalidEmail is returned when an email address fails validation.
	ErrInvalidEmail Error = "invalid email address"
	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername Error = "username must be 3-64 characters, alphanumeric and underscores only"
	// ErrInternal is returned for any other type of error.
	ErrInternal Error = "internal error"
)

// Error is an error type returned by the storage implementation.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Admins are the methods on a storage implementation that are responsible for
// accessing and provisioning admin credential records. Lookups are
// case-insensitive.
type Admins interface {
	// GetAdminByEmail returns the admin with the given email. An [ErrNotFound]
	// is returned if no admin uses the email.
	GetAdminByEmail(ctx context.Context, email string) (db.Admin, error)
	// GetAdminByUsername returns the admin with the given username. An
	// [ErrNotFound] is returned if no admin uses the username.
	GetAdminByUsername(ctx context.Context, username string) (db.Admin, error)
	// CreateAdmin stores a new admin and returns it with its generated ID. An
	// [ErrAlreadyExists] error is returned if the email or username is taken.
	CreateAdmin(ctx context.Context, admin db.Admin) (db.Admin, error)
	// ListAdmins returns admins ordered by email, paginated by the given email
	// (if provided) up to the given limit of records.
	ListAdmins(ctx context.Context, afterEmail string, limit int32) ([]db.Admin, error)
}

// Store is the combination interface for [Admins] and the connection
// lifecycle.
type Store interface {
	Admins
	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store. An error is returned if
	// the store cannot be cleanly closed.
	Close() error
}

// NormalizeEmail trims and lower-cases an email address. All lookups and
// writes go through it so that email matching is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
