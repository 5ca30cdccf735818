package db

import (
	"database/sql"
	"time"
)

// Admin is a stored administrative principal. Email is unique and compared
// case-insensitively; PasswordHash is a bcrypt verifier, never a plaintext
// password.
type Admin struct {
	ID           string
	Username     sql.NullString
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Handle returns the login handle of the admin, falling back to the email
// when no username was provisioned.
func (a Admin) Handle() string {
	if a.Username.Valid && a.Username.String != "" {
		return a.Username.String
	}
	return a.Email
}
