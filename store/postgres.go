package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wordgate/wordgate"
)

// PgxIface is the subset of pgxpool.Pool the Postgres user store needs.
// Taking the interface instead of the pool keeps the store testable with
// pgxmock.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUsers is the Postgres-backed UserStore. Expected schema:
//
//	CREATE TABLE users (
//	    email      TEXT PRIMARY KEY,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    last_login TIMESTAMPTZ
//	);
type PostgresUsers struct {
	db PgxIface
}

// NewPostgresUsers creates a PostgresUsers on the given pool.
func NewPostgresUsers(db PgxIface) *PostgresUsers {
	return &PostgresUsers{db: db}
}

// Get returns the record for email, or nil when absent.
func (s *PostgresUsers) Get(ctx context.Context, email string) (*wordgate.UserRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT email, created_at, last_login
		FROM users
		WHERE email = $1
	`, email)

	record, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return record, nil
}

// GetOrCreate inserts the record if missing and returns it either way. The
// no-op DO UPDATE makes the statement return the row on conflict, so
// get-or-create is a single atomic round trip.
func (s *PostgresUsers) GetOrCreate(ctx context.Context, email string) (*wordgate.UserRecord, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (email, created_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING email, created_at, last_login
	`, email, time.Now().UTC())

	record, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return record, nil
}

// UpdateLastLogin sets last_login=now. Updating a missing row matches zero
// rows and is not an error.
func (s *PostgresUsers) UpdateLastLogin(ctx context.Context, email string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET last_login = $2
		WHERE email = $1
	`, email, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return nil
}

func scanUser(row pgx.Row) (*wordgate.UserRecord, error) {
	var record wordgate.UserRecord
	if err := row.Scan(&record.Email, &record.CreatedAt, &record.LastLogin); err != nil {
		return nil, err
	}
	return &record, nil
}

var _ wordgate.UserStore = (*PostgresUsers)(nil)
