package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stolasapp/lapor/internal/app"
	"github.com/stolasapp/lapor/internal/config"
	"github.com/stolasapp/lapor/internal/sec"
	"github.com/stolasapp/lapor/internal/server"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the admin login, logout, and session endpoints",
		Long: "Connects to the configured database, retrying on failure, and serves the\n" +
			"admin session endpoints. The process exits if the database stays unreachable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			signer, err := sec.NewSigner(cfg.SessionSecret)
			if err != nil {
				return err
			}
			appServer := app.New(cfg, logger, store, sec.NewAuthenticator(store, signer, logger))

			grp, ctx := errgroup.WithContext(cmd.Context())
			serveApp(ctx, grp, cfg, logger, appServer)
			return grp.Wait()
		},
	}
}

func serveApp(
	ctx context.Context,
	grp *errgroup.Group,
	cfg config.Config,
	logger *slog.Logger,
	srv *echo.Echo,
) {
	listener, err := server.Listen(ctx, cfg.WebAddress)
	if err != nil {
		grp.Go(func() error { return err })
		return
	}

	logger.InfoContext(ctx,
		"starting app server...",
		slog.String("address", listener.Addr().String()),
		slog.String("environment", cfg.Environment),
	)
	server.Serve(ctx, grp, logger, srv.Server, listener, server.DefaultTimeouts())
}
