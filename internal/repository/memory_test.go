package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"imaginify/internal/model"
	"imaginify/internal/transformation"
)

func seededStore(t *testing.T) (*MemoryStore, *model.User) {
	t.Helper()
	m := NewMemoryStore()
	clock := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	u := &model.User{ClerkID: "user_1", Email: "a@example.com", Username: "a", CreditBalance: 10}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return m, u
}

func TestMemoryListImagesOrderAndFilter(t *testing.T) {
	m, u := seededStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		img := &model.Image{
			Title:              fmt.Sprintf("image %d", i),
			TransformationType: transformation.Restore,
			PublicID:           fmt.Sprintf("imaginify/%d", i),
			AuthorID:           u.ID,
			Config:             transformation.Base(transformation.Restore),
		}
		if err := m.CreateImage(ctx, img); err != nil {
			t.Fatalf("create image: %v", err)
		}
	}
	other := &model.Image{Title: "other", PublicID: "imaginify/x", AuthorID: "someone-else"}
	if err := m.CreateImage(ctx, other); err != nil {
		t.Fatalf("create image: %v", err)
	}

	all, err := m.ListImages(ctx, ImageFilter{}, 0, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Title != "other" || all[1].Title != "image 4" {
		t.Fatalf("unexpected order: %v", titles(all))
	}

	mine, _ := m.ListImages(ctx, ImageFilter{AuthorID: u.ID}, 0, 10)
	if len(mine) != 5 {
		t.Fatalf("expected 5 images for author, got %d", len(mine))
	}

	restricted, _ := m.ListImages(ctx, ImageFilter{PublicIDs: []string{"imaginify/1", "imaginify/3"}, RestrictToPublicIDs: true}, 0, 10)
	if len(restricted) != 2 || restricted[0].PublicID != "imaginify/3" {
		t.Fatalf("unexpected restricted listing: %v", titles(restricted))
	}
	none, _ := m.CountImages(ctx, ImageFilter{RestrictToPublicIDs: true})
	if none != 0 {
		t.Fatalf("empty id restriction should match nothing, got %d", none)
	}

	past, _ := m.ListImages(ctx, ImageFilter{}, 10, 3)
	if len(past) != 0 {
		t.Fatalf("offset past the end should be empty, got %d", len(past))
	}
	negative, err := m.ListImages(ctx, ImageFilter{}, -9, 3)
	if err != nil || len(negative) != 3 || negative[0].Title != "other" {
		t.Fatalf("negative offset should read from the start: %v %v", titles(negative), err)
	}
}

func TestMemoryUpdateBumpsUpdatedAt(t *testing.T) {
	m, u := seededStore(t)
	ctx := context.Background()
	first := &model.Image{Title: "first", AuthorID: u.ID}
	second := &model.Image{Title: "second", AuthorID: u.ID}
	_ = m.CreateImage(ctx, first)
	_ = m.CreateImage(ctx, second)

	first.Title = "first edited"
	if err := m.UpdateImage(ctx, first); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, _ := m.ListImages(ctx, ImageFilter{}, 0, 10)
	if list[0].ID != first.ID {
		t.Fatalf("updated image should sort first: %v", titles(list))
	}
	if err := m.UpdateImage(ctx, &model.Image{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryAdjustCreditsHasNoFloor(t *testing.T) {
	m, u := seededStore(t)
	balance, err := m.AdjustCredits(context.Background(), u.ID, -15)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if balance != -5 {
		t.Fatalf("balance = %d, want -5", balance)
	}
	if _, err := m.AdjustCredits(context.Background(), "nobody", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRecordPurchaseIsIdempotent(t *testing.T) {
	m, u := seededStore(t)
	ctx := context.Background()
	tx := &model.Transaction{StripeID: "cs_1", Amount: 40, Plan: "Pro Package", Credits: 120, BuyerID: u.ID}
	balance, err := m.RecordPurchase(ctx, tx)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if balance != 130 {
		t.Fatalf("balance = %d, want 130", balance)
	}
	replay := &model.Transaction{StripeID: "cs_1", Amount: 40, Credits: 120, BuyerID: u.ID}
	if _, err := m.RecordPurchase(ctx, replay); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, _ := m.GetUserByID(ctx, u.ID)
	if got.CreditBalance != 130 {
		t.Fatalf("replay granted credits again: %d", got.CreditBalance)
	}
	list, _ := m.ListTransactionsByBuyer(ctx, u.ID)
	if len(list) != 1 {
		t.Fatalf("expected one transaction, got %d", len(list))
	}
}

func TestMemoryRecordPurchaseMissingBuyer(t *testing.T) {
	m, u := seededStore(t)
	ctx := context.Background()
	orphan := &model.Transaction{StripeID: "cs_2", Amount: 40, Credits: 120, BuyerID: "nobody"}
	if _, err := m.RecordPurchase(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got, _ := m.GetTransactionByStripeID(ctx, "cs_2"); got != nil {
		t.Fatalf("no transaction should be left behind: %+v", got)
	}
	retry := &model.Transaction{StripeID: "cs_2", Amount: 40, Credits: 120, BuyerID: u.ID}
	if balance, err := m.RecordPurchase(ctx, retry); err != nil || balance != 130 {
		t.Fatalf("redelivery should grant credits: balance=%d err=%v", balance, err)
	}
}

func TestMemoryUniqueUsers(t *testing.T) {
	m, _ := seededStore(t)
	dup := &model.User{ClerkID: "user_2", Email: "a@example.com", Username: "b"}
	if err := m.CreateUser(context.Background(), dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func titles(images []model.Image) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.Title
	}
	return out
}
