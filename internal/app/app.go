// Package app contains the admin session HTTP surface.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/stolasapp/lapor/internal/config"
	"github.com/stolasapp/lapor/internal/sec"
	"github.com/stolasapp/lapor/internal/storage"
)

// bodyLimit caps request bodies; a login payload is two short strings.
const bodyLimit = "16K"

// New creates the admin HTTP server.
func New(
	cfg config.Config,
	logger *slog.Logger,
	store storage.Store,
	auth *sec.Authenticator,
) *echo.Echo {
	srv := echo.New()

	srv.HideBanner = true
	srv.HidePort = true
	srv.Logger.SetLevel(log.OFF)
	srv.Debug = !cfg.IsProduction()

	srv.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Secure(),
		logRequests(logger),
		middleware.BodyLimit(bodyLimit),
	)

	metrics := newMetrics()
	handler{
		logger:  logger,
		store:   store,
		auth:    auth,
		secure:  cfg.IsProduction(),
		metrics: metrics,
	}.register(srv)
	srv.GET("/metrics", echo.WrapHandler(metrics.handler()))
	return srv
}

// RequireSession rejects requests without a valid session cookie. The
// admin's email is stored in the request context, see [sec.GetSessionEmail].
func RequireSession(auth *sec.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			email, ok := sessionEmail(c, auth)
			if !ok {
				return c.JSON(http.StatusUnauthorized, sessionResponse{})
			}
			ctx := sec.SetSessionEmail(c.Request().Context(), email)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func sessionEmail(c echo.Context, auth *sec.Authenticator) (string, bool) {
	cookie, err := c.Cookie(sec.CookieName)
	if err != nil {
		return "", false
	}
	return auth.Verify(cookie.Value)
}

// noStore marks responses as uncacheable; they reflect session state.
func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return next(c)
	}
}

func logRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.String("route", c.Path()),
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				slog.Duration("latency", latency),
				slog.Int("status", res.Status),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(
				req.Context(),
				slog.LevelDebug,
				"request handled",
				attrs...,
			)
			return nil
		}
	}
}
