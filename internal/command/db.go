package command

import (
	"errors"

	"github.com/spf13/cobra"
)

func dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database commands",
	}
	cmd.AddCommand(dbMigrateCommand())
	return cmd
}

func dbMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migrations",
		Long: "Applies any pending schema migrations to the configured database. This is\n" +
			"the only way the schema of an external Postgres database is changed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()
			return store.Migrate(cmd.Context(), logger)
		},
	}
}
