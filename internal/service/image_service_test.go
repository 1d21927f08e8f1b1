package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"imaginify/internal/apperror"
	"imaginify/internal/pubsub"
)

func TestListImagesPagination(t *testing.T) {
	store := newTestStore(t)
	author := mustCreateUser(t, store, "user_1", 10)
	for i := 0; i < 20; i++ {
		mustCreateImage(t, store, author, fmt.Sprintf("image %d", i), fmt.Sprintf("imaginify/%d", i))
	}
	svc := NewImageService(store.Images, store.Users, &fakeProvider{}, nil, nopLogger)
	ctx := context.Background()

	tests := []struct {
		page     int
		wantRows int
	}{
		{1, 9},
		{2, 9},
		{3, 2},
		{4, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			res, err := svc.ListImages(ctx, ListQuery{Page: tt.page, Limit: 9})
			if err != nil {
				t.Fatalf("ListImages: %v", err)
			}
			if len(res.Data) != tt.wantRows {
				t.Fatalf("rows = %d, want %d", len(res.Data), tt.wantRows)
			}
			if res.TotalPages != 3 || res.SavedImages != 20 || res.Page != tt.page {
				t.Fatalf("unexpected page meta: %+v", res)
			}
			for _, img := range res.Data {
				if img.Author == nil || img.Author.ClerkID != "user_1" {
					t.Fatalf("author not populated: %+v", img)
				}
			}
		})
	}

	res, err := svc.ListImages(ctx, ListQuery{})
	if err != nil {
		t.Fatalf("ListImages default: %v", err)
	}
	if len(res.Data) != DefaultPageSize || res.Page != 1 {
		t.Fatalf("defaults not applied: page=%d rows=%d", res.Page, len(res.Data))
	}

	for _, page := range []int{math.MaxInt/9 + 2, math.MaxInt} {
		res, err := svc.ListImages(ctx, ListQuery{Page: page, Limit: 9})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(res.Data) != 0 || res.Page != page || res.TotalPages != 3 {
			t.Fatalf("page %d: unexpected result %+v", page, res)
		}
	}

	for _, q := range []ListQuery{{Page: -1}, {Limit: 101}, {Limit: -3}} {
		if _, err := svc.ListImages(ctx, q); apperror.StatusCode(err) != 400 {
			t.Fatalf("expected validation error for %+v, got %v", q, err)
		}
	}
}

func TestListImagesSearch(t *testing.T) {
	store := newTestStore(t)
	author := mustCreateUser(t, store, "user_1", 10)
	mustCreateImage(t, store, author, "cat", "imaginify/cat")
	mustCreateImage(t, store, author, "dog", "imaginify/dog")
	mustCreateImage(t, store, author, "bird", "imaginify/bird")
	provider := &fakeProvider{searchIDs: map[string][]string{
		"pets": {"imaginify/cat", "imaginify/dog"},
	}}
	svc := NewImageService(store.Images, store.Users, provider, nil, nopLogger)

	res, err := svc.ListImages(context.Background(), ListQuery{Query: "pets"})
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(res.Data) != 2 || res.TotalPages != 1 || res.SavedImages != 3 {
		t.Fatalf("unexpected search page: rows=%d %+v", len(res.Data), res)
	}

	res, err = svc.ListImages(context.Background(), ListQuery{Query: "nothing"})
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(res.Data) != 0 || res.TotalPages != 0 {
		t.Fatalf("expected no results, got %d", len(res.Data))
	}
}

func TestListUserImages(t *testing.T) {
	store := newTestStore(t)
	u1 := mustCreateUser(t, store, "user_1", 10)
	u2 := mustCreateUser(t, store, "user_2", 10)
	mustCreateImage(t, store, u1, "a", "imaginify/a")
	mustCreateImage(t, store, u2, "b", "imaginify/b")
	mustCreateImage(t, store, u2, "c", "imaginify/c")
	svc := NewImageService(store.Images, store.Users, &fakeProvider{}, nil, nopLogger)

	res, err := svc.ListUserImages(context.Background(), "user_2", ListQuery{})
	if err != nil {
		t.Fatalf("ListUserImages: %v", err)
	}
	if len(res.Data) != 2 || res.SavedImages != 2 {
		t.Fatalf("unexpected user page: %+v", res)
	}
	for _, img := range res.Data {
		if img.AuthorID != u2.ID {
			t.Fatalf("foreign image in listing: %+v", img)
		}
	}
}

func TestUpdateImageRequiresAuthor(t *testing.T) {
	store := newTestStore(t)
	owner := mustCreateUser(t, store, "user_1", 10)
	mustCreateUser(t, store, "user_2", 10)
	img := mustCreateImage(t, store, owner, "original", "imaginify/x")
	svc := NewImageService(store.Images, store.Users, &fakeProvider{}, nil, nopLogger)
	ctx := context.Background()

	edit := *img
	edit.Title = "hijacked"
	_, err := svc.UpdateImage(ctx, "user_2", &edit)
	if !errors.Is(err, ErrNotImageOwner) || apperror.StatusCode(err) != 403 {
		t.Fatalf("expected authorization error, got %v", err)
	}
	stored, _ := store.Images.GetImageByID(ctx, img.ID)
	if stored.Title != "original" || !stored.UpdatedAt.Equal(img.UpdatedAt) {
		t.Fatalf("record changed by rejected update: %+v", stored)
	}

	if err := svc.DeleteImage(ctx, "user_2", img.ID); !errors.Is(err, ErrNotImageOwner) {
		t.Fatalf("expected authorization error on delete, got %v", err)
	}

	edit.Title = "renamed"
	updated, err := svc.UpdateImage(ctx, "user_1", &edit)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "renamed" || updated.Author == nil || updated.Author.ID != owner.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	missing := *img
	missing.ID = "does-not-exist"
	if _, err := svc.UpdateImage(ctx, "user_1", &missing); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteImage(t *testing.T) {
	store := newTestStore(t)
	owner := mustCreateUser(t, store, "user_1", 10)
	img := mustCreateImage(t, store, owner, "doomed", "imaginify/doomed")
	provider := &fakeProvider{}
	events := &captureEmitter{}
	svc := NewImageService(store.Images, store.Users, provider, events, nopLogger)

	if err := svc.DeleteImage(context.Background(), "user_1", img.ID); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if _, err := svc.GetImageByID(context.Background(), img.ID); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("image still readable: %v", err)
	}
	if len(provider.destroyed) != 1 || provider.destroyed[0] != "imaginify/doomed" {
		t.Fatalf("provider asset not destroyed: %v", provider.destroyed)
	}
	if got := events.types(); len(got) != 1 || got[0] != pubsub.EventImageDeleted {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestGetImageByIDPopulatesAuthor(t *testing.T) {
	store := newTestStore(t)
	owner := mustCreateUser(t, store, "user_1", 10)
	img := mustCreateImage(t, store, owner, "one", "imaginify/one")
	svc := NewImageService(store.Images, store.Users, &fakeProvider{}, nil, nopLogger)

	got, err := svc.GetImageByID(context.Background(), img.ID)
	if err != nil {
		t.Fatalf("GetImageByID: %v", err)
	}
	if got.Author == nil || got.Author.FirstName != "First user_1" {
		t.Fatalf("author not populated: %+v", got.Author)
	}
}
