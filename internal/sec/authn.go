package sec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/stolasapp/lapor/internal/storage"
)

// dummyHash is compared against when no admin matches an email, so that a
// miss costs the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := HashPassword("lapor-dummy-password")
	if err != nil {
		panic(err)
	}
	return hash
})

// Authenticator validates admin credentials and issues session tokens.
type Authenticator struct {
	admins storage.Admins
	signer *Signer
	logger *slog.Logger
}

// NewAuthenticator returns an Authenticator backed by admins that issues
// tokens with signer.
func NewAuthenticator(admins storage.Admins, signer *Signer, logger *slog.Logger) *Authenticator {
	return &Authenticator{admins: admins, signer: signer, logger: logger}
}

// SignIn checks the email and password and returns a session token for the
// admin. It returns [ErrMissingCredentials] if either is empty and
// [ErrInvalidCredentials] if the email is unknown or the password does not
// match the stored hash, including a hash bcrypt cannot parse. Any other
// error is a failure of the store.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (string, error) {
	email = storage.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	admin, err := a.admins.GetAdminByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_ = ComparePassword(password, dummyHash())
		return "", ErrInvalidCredentials
	case err != nil:
		return "", fmt.Errorf("failed to load admin: %w", err)
	}

	if err = ComparePassword(password, admin.PasswordHash); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			a.logger.WarnContext(ctx, "stored password hash is unusable",
				slog.String("admin_id", admin.ID),
				slog.Any("error", err),
			)
		}
		return "", ErrInvalidCredentials
	}
	return a.signer.Mint(admin.Email), nil
}

// Verify returns the email of the admin the token was issued to. It never
// consults the store.
func (a *Authenticator) Verify(token string) (email string, ok bool) {
	return a.signer.Verify(token)
}

type sessionKey struct{}

// GetSessionEmail returns the email of the authenticated admin, or an empty
// string if the context carries no session.
func GetSessionEmail(ctx context.Context) string {
	email, _ := ctx.Value(sessionKey{}).(string)
	return email
}

// SetSessionEmail returns a copy of ctx carrying the authenticated admin's
// email.
func SetSessionEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, sessionKey{}, email)
}
