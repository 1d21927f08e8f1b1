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

type postgresTransactionRepo struct {
	pool *pgxpool.Pool
}

// RecordPurchase inserts the transaction and grants the credits in one
// serializable transaction.
func (r *postgresTransactionRepo) RecordPurchase(ctx context.Context, t *model.Transaction) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("starting transaction for purchase %s: %w", t.StripeID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	t.ID = uuid.NewString()
	const insertQ = `INSERT INTO transactions (id, stripe_id, amount, plan, credits, buyer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	if err := tx.QueryRow(ctx, insertQ, t.ID, t.StripeID, t.Amount, t.Plan, t.Credits, t.BuyerID).Scan(&t.CreatedAt); err != nil {
		return 0, pgErr(err, "recording purchase "+t.StripeID)
	}
	balance, err := adjustCreditsPG(ctx, tx, t.BuyerID, t.Credits)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing purchase %s: %w", t.StripeID, err)
	}
	return balance, nil
}

func (r *postgresTransactionRepo) GetTransactionByStripeID(ctx context.Context, stripeID string) (*model.Transaction, error) {
	var t model.Transaction
	var buyer *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, stripe_id, amount, plan, credits, buyer_id, created_at FROM transactions WHERE stripe_id = $1`,
		stripeID,
	).Scan(&t.ID, &t.StripeID, &t.Amount, &t.Plan, &t.Credits, &buyer, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", stripeID, err)
	}
	if buyer != nil {
		t.BuyerID = *buyer
	}
	return &t, nil
}

func (r *postgresTransactionRepo) ListTransactionsByBuyer(ctx context.Context, buyerID string) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, stripe_id, amount, plan, credits, created_at FROM transactions WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t := model.Transaction{BuyerID: buyerID}
		if err := rows.Scan(&t.ID, &t.StripeID, &t.Amount, &t.Plan, &t.Credits, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
