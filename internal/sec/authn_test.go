package sec

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/lapor/internal/storage"
	"github.com/stolasapp/lapor/internal/storage/db"
)

// fakeAdmins is an in-memory [storage.Admins] keyed by normalized email.
type fakeAdmins struct {
	storage.Admins

	admins map[string]db.Admin
	err    error
	calls  atomic.Int32
}

func (f *fakeAdmins) GetAdminByEmail(_ context.Context, email string) (db.Admin, error) {
	f.calls.Add(1)
	if f.err != nil {
		return db.Admin{}, f.err
	}
	admin, ok := f.admins[storage.NormalizeEmail(email)]
	if !ok {
		return db.Admin{}, storage.ErrNotFound
	}
	return admin, nil
}

func newTestAuthenticator(t *testing.T, admins *fakeAdmins) *Authenticator {
	t.Helper()
	return NewAuthenticator(admins, newTestSigner(t, "test-secret"), slog.New(slog.DiscardHandler))
}

func TestAuthenticator_SignIn(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	admins := &fakeAdmins{admins: map[string]db.Admin{
		"admin@example.com": {ID: "1", Email: "admin@example.com", PasswordHash: hash},
	}}
	auth := newTestAuthenticator(t, admins)

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		token, err := auth.SignIn(t.Context(), "admin@example.com", "admin123")
		require.NoError(t, err)

		email, ok := auth.Verify(token)
		require.True(t, ok)
		assert.Equal(t, "admin@example.com", email)
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		t.Parallel()
		token, err := auth.SignIn(t.Context(), "  ADMIN@Example.com ", "admin123")
		require.NoError(t, err)

		email, ok := auth.Verify(token)
		require.True(t, ok)
		assert.Equal(t, "admin@example.com", email, "subject is the stored email")
	})

	t.Run("password is case sensitive", func(t *testing.T) {
		t.Parallel()
		_, err := auth.SignIn(t.Context(), "admin@example.com", "ADMIN123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		t.Parallel()
		_, missErr := auth.SignIn(t.Context(), gofakeit.Email(), "admin123")
		_, wrongErr := auth.SignIn(t.Context(), "admin@example.com", gofakeit.Password(true, true, true, false, false, 12))
		require.ErrorIs(t, missErr, ErrInvalidCredentials)
		require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
		assert.Equal(t, missErr.Error(), wrongErr.Error())
	})

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", password: "admin123"},
		{name: "blank email", email: "   ", password: "admin123"},
		{name: "empty password", email: "admin@example.com"},
		{name: "both empty"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			token, err := auth.SignIn(t.Context(), test.email, test.password)
			require.ErrorIs(t, err, ErrMissingCredentials)
			assert.Empty(t, token)
		})
	}
}

func TestAuthenticator_SignInMissingSkipsStore(t *testing.T) {
	t.Parallel()

	admins := &fakeAdmins{}
	_, err := newTestAuthenticator(t, admins).SignIn(t.Context(), "", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, admins.calls.Load())
}

func TestAuthenticator_SignInStoreError(t *testing.T) {
	t.Parallel()

	errDown := errors.New("database unreachable")
	auth := newTestAuthenticator(t, &fakeAdmins{err: errDown})

	_, err := auth.SignIn(t.Context(), "admin@example.com", "admin123")
	require.ErrorIs(t, err, errDown)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticator_SignInCorruptHash(t *testing.T) {
	t.Parallel()

	auth := newTestAuthenticator(t, &fakeAdmins{admins: map[string]db.Admin{
		"admin@example.com": {Email: "admin@example.com", PasswordHash: []byte("not-a-bcrypt-hash")},
	}})

	for _, password := range []string{"admin123", "not-a-bcrypt-hash"} {
		token, err := auth.SignIn(t.Context(), "admin@example.com", password)
		require.ErrorIs(t, err, ErrInvalidCredentials, password)
		assert.Empty(t, token)
	}
}

func TestSessionEmail(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetSessionEmail(t.Context()))
	ctx := SetSessionEmail(t.Context(), "admin@example.com")
	assert.Equal(t, "admin@example.com", GetSessionEmail(ctx))
}
