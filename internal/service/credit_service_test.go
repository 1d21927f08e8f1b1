package service

import (
	"context"
	"testing"

	"imaginify/internal/model"
)

func TestCreditService(t *testing.T) {
	store := newTestStore(t)
	u := mustCreateUser(t, store, "user_1", 10)
	svc := NewCreditService(store.Users, store.Transactions)
	ctx := context.Background()

	if plans := svc.Plans(); len(plans) != 3 || plans[2].Credits != 2000 {
		t.Fatalf("unexpected plans: %+v", plans)
	}

	txs, err := svc.Transactions(ctx, "user_1")
	if err != nil || txs == nil || len(txs) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", txs, err)
	}

	if _, err := store.Transactions.RecordPurchase(ctx, &model.Transaction{StripeID: "cs_1", Amount: 40, Plan: "Pro Package", Credits: 120, BuyerID: u.ID}); err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}
	bal, err := svc.Balance(ctx, "user_1")
	if err != nil || bal.CreditBalance != 130 || bal.PlanID != 1 {
		t.Fatalf("unexpected balance %+v %v", bal, err)
	}
	txs, _ = svc.Transactions(ctx, "user_1")
	if len(txs) != 1 || txs[0].StripeID != "cs_1" {
		t.Fatalf("unexpected transactions %+v", txs)
	}
}
