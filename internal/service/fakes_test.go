package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"imaginify/internal/media"
	"imaginify/internal/model"
	"imaginify/internal/pubsub"
	"imaginify/internal/repository"
	"imaginify/internal/transformation"

	"github.com/rs/zerolog"
)

type fakeProvider struct {
	mu        sync.Mutex
	searchIDs map[string][]string
	destroyed []string
	uploaded  []string
	urlErr    error
}

func (p *fakeProvider) Upload(_ context.Context, sourceURL string) (media.Asset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploaded = append(p.uploaded, sourceURL)
	return media.Asset{PublicID: "imaginify/uploaded", SecureURL: "https://cdn.test/uploaded.png", Width: 640, Height: 480}, nil
}

func (p *fakeProvider) SearchPublicIDs(_ context.Context, query string) ([]string, error) {
	return p.searchIDs[query], nil
}

func (p *fakeProvider) TransformationURL(publicID string, width, height int, cfg transformation.Config) (string, error) {
	if p.urlErr != nil {
		return "", p.urlErr
	}
	return "https://cdn.test/" + strings.Join(cfg.Effects(width, height), "/") + "/" + publicID, nil
}

func (p *fakeProvider) Destroy(_ context.Context, publicID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = append(p.destroyed, publicID)
	return nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []pubsub.Event
}

func (c *captureEmitter) Emit(_ context.Context, ev pubsub.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureEmitter) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

type countingMetrics struct {
	debited, refunded, purchased int
}

func (m *countingMetrics) CreditsDebited(n int)   { m.debited += n }
func (m *countingMetrics) CreditsRefunded(n int)  { m.refunded += n }
func (m *countingMetrics) CreditsPurchased(n int) { m.purchased += n }

// failingImages fails every write.
type failingImages struct {
	ImageService
}

var errStoreDown = errors.New("store unavailable")

func (failingImages) AddImage(context.Context, string, *model.Image) (*model.Image, error) {
	return nil, errStoreDown
}

func (failingImages) UpdateImage(context.Context, string, *model.Image) (*model.Image, error) {
	return nil, errStoreDown
}

// flakyImages fails the first write and passes later ones through.
type flakyImages struct {
	ImageService
	mu     sync.Mutex
	failed bool
}

func (f *flakyImages) AddImage(ctx context.Context, clerkID string, img *model.Image) (*model.Image, error) {
	f.mu.Lock()
	first := !f.failed
	f.failed = true
	f.mu.Unlock()
	if first {
		return nil, errStoreDown
	}
	return f.ImageService.AddImage(ctx, clerkID, img)
}

// blockingImages holds AddImage until release is closed.
type blockingImages struct {
	ImageService
	entered chan struct{}
	release chan struct{}
}

func (b *blockingImages) AddImage(ctx context.Context, clerkID string, img *model.Image) (*model.Image, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.ImageService.AddImage(ctx, clerkID, img)
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewMemoryStore().Store()
}

func mustCreateUser(t *testing.T, store *repository.Store, clerkID string, balance int) *model.User {
	t.Helper()
	u := &model.User{
		ClerkID:       clerkID,
		Email:         clerkID + "@example.com",
		Username:      clerkID,
		FirstName:     "First " + clerkID,
		PlanID:        1,
		CreditBalance: balance,
	}
	if err := store.Users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", clerkID, err)
	}
	return u
}

func mustCreateImage(t *testing.T, store *repository.Store, author *model.User, title, publicID string) *model.Image {
	t.Helper()
	img := &model.Image{
		Title:              title,
		TransformationType: transformation.Restore,
		PublicID:           publicID,
		SecureURL:          "https://cdn.test/" + publicID,
		Width:              800,
		Height:             600,
		Config:             transformation.Base(transformation.Restore),
		AuthorID:           author.ID,
	}
	if err := store.Images.CreateImage(context.Background(), img); err != nil {
		t.Fatalf("create image: %v", err)
	}
	return img
}

func balanceOf(t *testing.T, store *repository.Store, userID string) int {
	t.Helper()
	u, err := store.Users.GetUserByID(context.Background(), userID)
	if err != nil || u == nil {
		t.Fatalf("load user %s: %v", userID, err)
	}
	return u.CreditBalance
}

var nopLogger = zerolog.Nop()
