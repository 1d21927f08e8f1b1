package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	clerk_id       TEXT NOT NULL UNIQUE,
	email          TEXT NOT NULL UNIQUE,
	username       TEXT NOT NULL UNIQUE,
	photo          TEXT NOT NULL DEFAULT '',
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	plan_id        INTEGER NOT NULL DEFAULT 1,
	credit_balance INTEGER NOT NULL DEFAULT 10,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS images (
	id                  TEXT PRIMARY KEY,
	title               TEXT NOT NULL,
	transformation_type TEXT NOT NULL,
	public_id           TEXT NOT NULL,
	secure_url          TEXT NOT NULL,
	width               INTEGER NOT NULL DEFAULT 0,
	height              INTEGER NOT NULL DEFAULT 0,
	config              JSONB NOT NULL DEFAULT '{}'::jsonb,
	transformation_url  TEXT NOT NULL DEFAULT '',
	aspect_ratio        TEXT NOT NULL DEFAULT '',
	color               TEXT NOT NULL DEFAULT '',
	prompt              TEXT NOT NULL DEFAULT '',
	author_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS images_updated_at_idx ON images (updated_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS images_author_idx ON images (author_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS images_public_id_idx ON images (public_id);

CREATE TABLE IF NOT EXISTS transactions (
	id         TEXT PRIMARY KEY,
	stripe_id  TEXT NOT NULL UNIQUE,
	amount     DOUBLE PRECISION NOT NULL,
	plan       TEXT NOT NULL DEFAULT '',
	credits    INTEGER NOT NULL DEFAULT 0,
	buyer_id   TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transactions_buyer_idx ON transactions (buyer_id, created_at DESC);
`

// NewPostgresStore builds the repositories over pool. Closing the store
// closes the pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Images:       &postgresImageRepo{pool: pool},
		Users:        &postgresUserRepo{pool: pool},
		Transactions: &postgresTransactionRepo{pool: pool},
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}

// EnsurePostgresSchema creates the tables when missing.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func pgErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
