package service

import (
	"context"
	"errors"
	"testing"

	"imaginify/internal/repository"
)

func TestCreateUserDefaults(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store.Users, store.Images, 10, nopLogger)
	ctx := context.Background()

	u, err := svc.Create(ctx, "user_1", Profile{Email: "a@example.com", Username: "a", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.CreditBalance != 10 || u.PlanID != 1 || u.ClerkID != "user_1" {
		t.Fatalf("unexpected defaults: %+v", u)
	}

	if _, err := svc.Create(ctx, "user_2", Profile{Email: "a@example.com", Username: "b"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.GetByClerkID(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProfileKeepsBalance(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store.Users, store.Images, 10, nopLogger)
	ctx := context.Background()
	u, _ := svc.Create(ctx, "user_1", Profile{Email: "a@example.com", Username: "a"})
	if _, err := store.Users.AdjustCredits(ctx, u.ID, 5); err != nil {
		t.Fatalf("AdjustCredits: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, "user_1", Profile{Email: "new@example.com", Username: "a", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Email != "new@example.com" || updated.LastName != "Lovelace" || updated.CreditBalance != 15 {
		t.Fatalf("unexpected update: %+v", updated)
	}
}

func TestDeleteUserRemovesImages(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store.Users, store.Images, 10, nopLogger)
	ctx := context.Background()
	u := mustCreateUser(t, store, "user_1", 10)
	other := mustCreateUser(t, store, "user_2", 10)
	mustCreateImage(t, store, u, "a", "imaginify/a")
	mustCreateImage(t, store, other, "b", "imaginify/b")

	if err := svc.Delete(ctx, "user_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetByClerkID(ctx, "user_1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatal("user still present")
	}
	n, _ := store.Images.CountImages(ctx, repository.ImageFilter{})
	if n != 1 {
		t.Fatalf("expected only the other user's image to remain, got %d", n)
	}
}
