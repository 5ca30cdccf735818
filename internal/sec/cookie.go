package sec

import (
	"net/http"
	"time"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "admin_session"
	// SessionMaxAge is how long a browser keeps the session cookie.
	SessionMaxAge = 8 * time.Hour
)

// SessionCookie returns the cookie carrying token. secure should be set in
// production so the cookie is only sent over TLS.
func SessionCookie(token string, secure bool) *http.Cookie {
	cookie := baseCookie(secure)
	cookie.Value = token
	cookie.MaxAge = int(SessionMaxAge / time.Second)
	return cookie
}

// ExpiredSessionCookie returns a cookie instructing the browser to delete the
// session cookie immediately.
func ExpiredSessionCookie(secure bool) *http.Cookie {
	cookie := baseCookie(secure)
	cookie.MaxAge = -1 // Max-Age=0 on the wire
	return cookie
}

func baseCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
