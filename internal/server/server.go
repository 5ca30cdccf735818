// Package server provides shared HTTP server utilities.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Timeouts bound the phases of each request and of shutdown.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// DefaultTimeouts returns the timeouts used by the admin server. Writes allow
// for a full pool acquire plus a bcrypt comparison.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadHeader: 1 * time.Second,
		Read:       5 * time.Second,
		Write:      45 * time.Second,
		Idle:       60 * time.Second,
		Shutdown:   10 * time.Second,
	}
}

// Listen creates a TCP listener on the given address.
// Use "127.0.0.1:0" for a random available port.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}

// Serve starts an HTTP server on the given listener and registers graceful
// shutdown when the context is canceled. Timeouts of srv are overwritten with
// the given ones.
func Serve(
	ctx context.Context,
	grp *errgroup.Group,
	logger *slog.Logger,
	srv *http.Server,
	listener net.Listener,
	timeouts Timeouts,
) {
	srv.ReadHeaderTimeout = timeouts.ReadHeader
	srv.ReadTimeout = timeouts.Read
	srv.WriteTimeout = timeouts.Write
	srv.IdleTimeout = timeouts.Idle

	grp.Go(func() error {
		err := srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	grp.Go(func() error {
		<-ctx.Done()
		logger.InfoContext(ctx, "shutting down server", slog.String("address", listener.Addr().String()))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
