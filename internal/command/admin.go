package command

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stolasapp/lapor/internal/config"
	"github.com/stolasapp/lapor/internal/pagination"
	"github.com/stolasapp/lapor/internal/sec"
	"github.com/stolasapp/lapor/internal/storage"
	"github.com/stolasapp/lapor/internal/storage/db"
)

const listPageSize = 100

func adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin account commands",
	}
	cmd.AddCommand(
		adminSeedCommand(),
		adminListCommand(),
	)
	return cmd
}

func adminSeedCommand() *cobra.Command {
	var email, username string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision an admin account",
		Long: "Creates the admin account if no admin uses the email yet. The email and\n" +
			"username default to ADMIN_EMAIL and ADMIN_USERNAME; the password is read\n" +
			"from ADMIN_PASSWORD or through the interactive prompt.",
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

			seed := cfg.Seed
			if cmd.Flags().Changed("email") {
				seed.Email = email
			}
			if cmd.Flags().Changed("username") {
				seed.Username = username
			}
			if seed.Password == "" {
				passwd, err := prompt("password: ", true)
				if err != nil {
					return err
				}
				seed.Password = string(passwd)
			}
			return seedAdmin(cmd.Context(), store, logger, seed)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the admin (default from ADMIN_EMAIL)")
	cmd.Flags().StringVar(&username, "username", "", "optional username of the admin (default from ADMIN_USERNAME)")
	return cmd
}

// seedAdmin creates the admin described by seed unless its email is taken.
// A username held by an admin with another email is an error. The password
// is hashed before anything touches the store.
func seedAdmin(ctx context.Context, admins storage.Admins, logger *slog.Logger, seed config.SeedConfig) error {
	if seed.Password == "" {
		return errors.New("a password is required to seed an admin")
	}
	hash, err := sec.HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	email := storage.NormalizeEmail(seed.Email)
	logger = logger.With(slog.String("email", email))
	switch _, err = admins.GetAdminByEmail(ctx, email); {
	case err == nil:
		logger.InfoContext(ctx, "admin already exists, nothing to seed")
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	username := nullString(seed.Username)
	admin, err := admins.CreateAdmin(ctx, db.Admin{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return seedConflict(ctx, admins, logger, email, username)
	case err != nil:
		return err
	}
	logger.InfoContext(ctx, "seeded admin",
		slog.String("id", admin.ID),
		slog.String("handle", admin.Handle()),
	)
	return nil
}

// seedConflict resolves a unique violation on seed: the email was created
// concurrently, which is success, or the username belongs to another admin.
func seedConflict(ctx context.Context, admins storage.Admins, logger *slog.Logger, email string, username sql.NullString) error {
	if username.Valid {
		holder, err := admins.GetAdminByUsername(ctx, username.String)
		switch {
		case err == nil && holder.Email != email:
			return fmt.Errorf("username %q is taken by another admin", username.String)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}
	logger.InfoContext(ctx, "admin already exists, nothing to seed")
	return nil
}

// adminCursor is the position of an `admin list` page.
type adminCursor struct {
	AfterEmail string `json:"after_email"`
}

func (c *adminCursor) Validate() error {
	if c.AfterEmail == "" {
		return errors.New("missing email")
	}
	return nil
}

func adminListCommand() *cobra.Command {
	var (
		pageToken string
		limit     int32
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provisioned admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			_, _, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			next, err := listAdmins(cmd.Context(), cmd.OutOrStdout(), store, pageToken, limit)
			if err != nil {
				return err
			}
			if next != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\nnext page: --page-token %s\n", next)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "token of the page to list")
	cmd.Flags().Int32Var(&limit, "limit", listPageSize, "maximum number of admins to list")
	return cmd
}

// listAdmins writes one page of admins to out and returns the token of the
// next page, or an empty string on the last page.
func listAdmins(
	ctx context.Context,
	out io.Writer,
	admins storage.Admins,
	pageToken string,
	limit int32,
) (string, error) {
	var cursor adminCursor
	if pageToken != "" {
		if err := pagination.FromToken(pageToken, &cursor); err != nil {
			return "", err
		}
	}
	if limit <= 0 || limit > listPageSize {
		limit = listPageSize
	}

	// one extra row tells whether another page follows
	page, err := admins.ListAdmins(ctx, cursor.AfterEmail, limit+1)
	if err != nil {
		return "", err
	}
	var next string
	if len(page) > int(limit) {
		page = page[:limit]
		if next, err = pagination.ToToken(adminCursor{AfterEmail: page[limit-1].Email}); err != nil {
			return "", err
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd // column padding
	_, _ = fmt.Fprintln(w, "EMAIL\tUSERNAME\tCREATED")
	for _, admin := range page {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			admin.Email,
			admin.Username.String,
			admin.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return next, w.Flush()
}
