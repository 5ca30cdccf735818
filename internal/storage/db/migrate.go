package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

var gooseDialects = map[Dialect]struct {
	dir     string
	dialect goose.Dialect
}{
	SQLite:   {dir: "migrations/sqlite", dialect: goose.DialectSQLite3},
	Postgres: {dir: "migrations/postgres", dialect: goose.DialectPostgres},
}

// Migrate applies the embedded schema migrations of dialect to handle. It is
// run automatically only for the local SQLite file; external databases are
// migrated by an explicit operator action.
func Migrate(ctx context.Context, logger *slog.Logger, handle *sql.DB, dialect Dialect) error {
	set, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}
	fsys, err := fs.Sub(migrations, set.dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(set.dialect, handle, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	logger.InfoContext(ctx, "synchronizing database schema", slog.String("dialect", string(dialect)))
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, res := range results {
		logger.DebugContext(ctx, "migration applied",
			slog.String("migration", res.Source.Path),
			slog.Int64("version", res.Source.Version),
			slog.Duration("duration", res.Duration),
		)
	}
	logger.InfoContext(ctx, "database schema synchronized", slog.Int("applied", len(results)))
	return nil
}
