package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of database/sql used by [Queries]. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// statements holds the parameterized SQL of one dialect. User input is only
// ever bound as an argument.
type statements struct {
	getAdminByEmail    string
	getAdminByUsername string
	createAdmin        string
	listAdmins         string
}

const adminColumns = `id, username, email, password_hash, created_at, updated_at`

var dialectStatements = map[Dialect]statements{
	SQLite: {
		getAdminByEmail: `SELECT ` + adminColumns + ` FROM admins
			WHERE lower(email) = ?
			ORDER BY created_at, id
			LIMIT 1`,
		getAdminByUsername: `SELECT ` + adminColumns + ` FROM admins
			WHERE lower(username) = ?
			ORDER BY created_at, id
			LIMIT 1`,
		createAdmin: `INSERT INTO admins (id, username, email, password_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
			RETURNING id`,
		listAdmins: `SELECT ` + adminColumns + ` FROM admins
			WHERE lower(email) > ?
			ORDER BY lower(email)
			LIMIT ?`,
	},
	Postgres: {
		getAdminByEmail: `SELECT ` + adminColumns + ` FROM admins
			WHERE lower(email) = $1
			ORDER BY created_at, id
			LIMIT 1`,
		getAdminByUsername: `SELECT ` + adminColumns + ` FROM admins
			WHERE lower(username) = $1
			ORDER BY created_at, id
			LIMIT 1`,
		createAdmin: `INSERT INTO admins (id, username, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING
			RETURNING id`,
		listAdmins: `SELECT ` + adminColumns + ` FROM admins
			WHERE lower(email) > $1
			ORDER BY lower(email)
			LIMIT $2`,
	},
}

// Queries runs the admin statements of a dialect against a [DBTX].
type Queries struct {
	db   DBTX
	stmt statements
}

// New returns the Queries for dialect. It panics on an unknown dialect.
func New(db DBTX, dialect Dialect) *Queries {
	stmt, ok := dialectStatements[dialect]
	if !ok {
		panic("db: unknown dialect " + string(dialect))
	}
	return &Queries{db: db, stmt: stmt}
}

// GetAdminByEmail returns the first admin whose email equals the already
// lower-cased email.
func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return scanAdmin(q.db.QueryRowContext(ctx, q.stmt.getAdminByEmail, email))
}

// GetAdminByUsername returns the first admin whose username equals the
// already lower-cased username.
func (q *Queries) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	return scanAdmin(q.db.QueryRowContext(ctx, q.stmt.getAdminByUsername, username))
}

// CreateAdminParams are the columns written by [Queries.CreateAdmin].
type CreateAdminParams struct {
	ID           string
	Username     sql.NullString
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// CreateAdmin inserts an admin and returns its ID. A [sql.ErrNoRows] is
// returned if the email or username is already taken.
func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, q.stmt.createAdmin,
		arg.ID,
		arg.Username,
		arg.Email,
		string(arg.PasswordHash),
		arg.CreatedAt,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

// ListAdminsParams paginates [Queries.ListAdmins] by lower-cased email.
type ListAdminsParams struct {
	AfterEmail string
	Limit      int64
}

// ListAdmins returns admins ordered by email.
func (q *Queries) ListAdmins(ctx context.Context, arg ListAdminsParams) ([]Admin, error) {
	rows, err := q.db.QueryContext(ctx, q.stmt.listAdmins, arg.AfterEmail, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, admin)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row scanner) (Admin, error) {
	var admin Admin
	err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	return admin, err
}
