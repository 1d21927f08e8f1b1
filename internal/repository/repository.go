package repository

import (
	"context"
	"errors"

	"imaginify/internal/model"
)

var (
	// ErrNotFound is returned by mutations on a record that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// ImageFilter narrows image listings. When RestrictToPublicIDs is set only
// images whose asset id is in PublicIDs match, so an empty PublicIDs
// matches nothing.
type ImageFilter struct {
	AuthorID            string
	PublicIDs           []string
	RestrictToPublicIDs bool
}

// ImageRepository stores image records. Listings are ordered by UpdatedAt,
// most recent first.
type ImageRepository interface {
	CreateImage(ctx context.Context, img *model.Image) error
	// GetImageByID returns nil, nil when the image does not exist.
	GetImageByID(ctx context.Context, id string) (*model.Image, error)
	UpdateImage(ctx context.Context, img *model.Image) error
	DeleteImage(ctx context.Context, id string) error
	DeleteImagesByAuthor(ctx context.Context, authorID string) (int, error)
	ListImages(ctx context.Context, filter ImageFilter, offset, limit int) ([]model.Image, error)
	CountImages(ctx context.Context, filter ImageFilter) (int, error)
}

// UserRepository stores users and their credit balance.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	// GetUserByID and GetUserByClerkID return nil, nil when absent.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error
	// AdjustCredits adds delta (which may be negative) to the balance and
	// returns the new balance. There is no floor.
	AdjustCredits(ctx context.Context, userID string, delta int) (int, error)
}

// TransactionRepository stores credit purchases.
type TransactionRepository interface {
	// RecordPurchase stores t and grants t.Credits to the buyer. A repeated
	// StripeID yields ErrDuplicate and grants nothing.
	RecordPurchase(ctx context.Context, t *model.Transaction) (int, error)
	GetTransactionByStripeID(ctx context.Context, stripeID string) (*model.Transaction, error)
	ListTransactionsByBuyer(ctx context.Context, buyerID string) ([]model.Transaction, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Images       ImageRepository
	Users        UserRepository
	Transactions TransactionRepository
	close        func(ctx context.Context) error
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
