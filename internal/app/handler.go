package app

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stolasapp/lapor/internal/sec"
	"github.com/stolasapp/lapor/internal/storage"
)

const (
	msgLoginSucceeded  = "login successful"
	msgInvalidBody     = "invalid request body"
	msgInternalFailure = "internal server error"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logoutResponse struct {
	OK bool `json:"ok"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

type handler struct {
	logger  *slog.Logger
	store   storage.Store
	auth    *sec.Authenticator
	secure  bool
	metrics *metrics
}

func (h handler) register(e *echo.Echo) {
	admin := e.Group("/admin", noStore)
	admin.POST("/login", h.login)
	admin.POST("/logout", h.logout)
	admin.GET("/me", h.me, RequireSession(h.auth))

	e.GET("/readyz", h.ready)
}

func (h handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil {
		h.metrics.login(outcomeMissing)
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidBody})
	}

	ctx := c.Request().Context()
	token, err := h.auth.SignIn(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, sec.ErrMissingCredentials):
		h.metrics.login(outcomeMissing)
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	case errors.Is(err, sec.ErrInvalidCredentials):
		h.metrics.login(outcomeInvalid)
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
	case err != nil:
		h.metrics.login(outcomeError)
		h.logger.ErrorContext(ctx, "admin login failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: msgInternalFailure})
	}

	h.metrics.login(outcomeSuccess)
	c.SetCookie(sec.SessionCookie(token, h.secure))
	return c.JSON(http.StatusOK, messageResponse{Message: msgLoginSucceeded})
}

func (h handler) logout(c echo.Context) error {
	c.SetCookie(sec.ExpiredSessionCookie(h.secure))
	return c.JSON(http.StatusOK, logoutResponse{OK: true})
}

func (h handler) me(c echo.Context) error {
	email := sec.GetSessionEmail(c.Request().Context())
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, Email: email})
}

func (h handler) ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "database not ready", slog.Any("error", err))
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
