// Package command contains the CLI command constructors.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stolasapp/lapor/internal/config"
	"github.com/stolasapp/lapor/internal/observability"
)

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	configFilePath := config.DefaultPath()
	cmd := &cobra.Command{
		Use:          "lapor [command] [flags]",
		Short:        "The admin session authentication service",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			explicit := cmd.Flags().Changed("config")
			cfg, err := loadOrDefaultConfig(configFilePath, explicit, os.LookupEnv)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := observability.InitSlog(cfg)
			logger.DebugContext(cmd.Context(), "configuration loaded", slog.Any("config", cfg))
			if cfg.InsecureSecret() {
				logger.WarnContext(cmd.Context(),
					"using the insecure development session secret; set ADMIN_SESSION_SECRET")
			}
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		configFilePath,
		"path to the optional configuration file",
	)

	cmd.AddCommand(
		serveCommand(),
		adminCommand(),
		dbCommand(),
	)

	return cmd
}

// loadOrDefaultConfig loads the config file at path. A missing file is only an
// error if the path was set explicitly; otherwise the defaults and environment
// are used on their own.
func loadOrDefaultConfig(path string, explicit bool, lookup config.LookupFunc) (config.Config, error) {
	cfg, err := config.Load(path, lookup)
	if err == nil || explicit || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	return config.Load("", lookup)
}
