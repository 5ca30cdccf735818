// Package sec provides the session authentication primitives of the admin
// surface.
//
// # Sessions
//
// A session token is the admin's canonical email followed by a '.' and the
// hex-encoded HMAC-SHA256 of that email under the process-wide secret. Tokens
// carry no expiry and are not stored anywhere: the cookie's max-age is the
// only client-side lifetime bound, and a server-side validity check is a pure
// function of the token and the secret.
//
// As a consequence individual sessions cannot be revoked. Logging out only
// asks the browser to drop its cookie; a copy of the token stays valid until
// the secret is rotated, which invalidates every outstanding token at once.
//
// # Components
//
//   - [Signer]: mints and verifies session tokens
//   - [Authenticator]: validates credentials against the admin store
//   - [SessionCookie], [ExpiredSessionCookie]: the session cookie attributes
//   - [GetSessionEmail], [SetSessionEmail]: context accessors for the subject
//   - [HashPassword], [ComparePassword]: bcrypt password hashing utilities
package sec

const (
	// ErrMissingCredentials is returned when the email or password is empty.
	ErrMissingCredentials Error = "email and password are required"
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so the two cannot be told apart.
	ErrInvalidCredentials Error = "invalid email or password"
	// ErrEmptySecret is returned when a [Signer] is created without a secret.
	ErrEmptySecret Error = "session secret must not be empty"
)

// Error is an error type returned by the sec package.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }
