package service

import (
	"context"

	"imaginify/internal/apperror"
	"imaginify/internal/model"
	"imaginify/internal/repository"
)

// Balance is a user's credit standing.
type Balance struct {
	CreditBalance int `json:"credit_balance"`
	PlanID        int `json:"plan_id"`
}

type CreditService interface {
	Plans() []model.Plan
	Balance(ctx context.Context, clerkID string) (*Balance, error)
	Transactions(ctx context.Context, clerkID string) ([]model.Transaction, error)
}

type creditService struct {
	userRepo repository.UserRepository
	txRepo   repository.TransactionRepository
}

func NewCreditService(userRepo repository.UserRepository, txRepo repository.TransactionRepository) CreditService {
	return &creditService{userRepo: userRepo, txRepo: txRepo}
}

func (s *creditService) Plans() []model.Plan {
	out := make([]model.Plan, len(model.Plans))
	copy(out, model.Plans)
	return out
}

func (s *creditService) Balance(ctx context.Context, clerkID string) (*Balance, error) {
	u, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return nil, err
	}
	return &Balance{CreditBalance: u.CreditBalance, PlanID: u.PlanID}, nil
}

func (s *creditService) Transactions(ctx context.Context, clerkID string) ([]model.Transaction, error) {
	u, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return nil, err
	}
	txs, err := s.txRepo.ListTransactionsByBuyer(ctx, u.ID)
	if err != nil {
		return nil, apperror.Wrap(err, "failed to list transactions")
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}
