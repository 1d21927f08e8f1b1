package repository

import (
	"context"
	"errors"
	"fmt"

	"imaginify/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, clerk_id, email, username, photo, first_name, last_name, plan_id, credit_balance, created_at, updated_at`

type postgresUserRepo struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.Photo, &u.FirstName, &u.LastName,
		&u.PlanID, &u.CreditBalance, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *postgresUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = uuid.NewString()
	query := `INSERT INTO users (id, clerk_id, email, username, photo, first_name, last_name, plan_id, credit_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		u.ID, u.ClerkID, u.Email, u.Username, u.Photo, u.FirstName, u.LastName, u.PlanID, u.CreditBalance,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return pgErr(err, "insert user")
	}
	return nil
}

func (r *postgresUserRepo) getOne(ctx context.Context, query string, arg string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *postgresUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *postgresUserRepo) GetUserByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID)
}

func (r *postgresUserRepo) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresUserRepo) UpdateUser(ctx context.Context, u *model.User) error {
	query := `UPDATE users SET email = $2, username = $3, photo = $4, first_name = $5, last_name = $6,
			plan_id = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	updated, err := scanUser(r.pool.QueryRow(ctx, query, u.ID, u.Email, u.Username, u.Photo, u.FirstName, u.LastName, u.PlanID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return pgErr(err, "update user")
	}
	*u = updated
	return nil
}

func (r *postgresUserRepo) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresUserRepo) AdjustCredits(ctx context.Context, userID string, delta int) (int, error) {
	return adjustCreditsPG(ctx, r.pool, userID, delta)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func adjustCreditsPG(ctx context.Context, q querier, userID string, delta int) (int, error) {
	var balance int
	err := q.QueryRow(ctx,
		`UPDATE users SET credit_balance = credit_balance + $2, updated_at = now() WHERE id = $1 RETURNING credit_balance`,
		userID, delta,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("adjusting credits for user %s: %w", userID, err)
	}
	return balance, nil
}
