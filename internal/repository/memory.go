package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"imaginify/internal/model"

	"github.com/google/uuid"
)

// MemoryStore keeps every record in process memory. It backs tests and the
// memory store driver.
type MemoryStore struct {
	mu           sync.RWMutex
	images       map[string]model.Image
	users        map[string]model.User
	transactions map[string]model.Transaction
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		images:       make(map[string]model.Image),
		users:        make(map[string]model.User),
		transactions: make(map[string]model.Transaction),
		now:          time.Now,
	}
}

// Store exposes the memory backend through the repository interfaces.
func (m *MemoryStore) Store() *Store {
	return &Store{Images: m, Users: m, Transactions: m}
}

func (m *MemoryStore) CreateImage(_ context.Context, img *model.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	img.ID = uuid.NewString()
	img.CreatedAt, img.UpdatedAt = now, now
	stored := *img
	stored.Author = nil
	stored.Config = img.Config.Clone()
	m.images[img.ID] = stored
	return nil
}

func (m *MemoryStore) GetImageByID(_ context.Context, id string) (*model.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	if !ok {
		return nil, nil
	}
	img.Config = img.Config.Clone()
	return &img, nil
}

func (m *MemoryStore) UpdateImage(_ context.Context, img *model.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.images[img.ID]
	if !ok {
		return ErrNotFound
	}
	img.CreatedAt = existing.CreatedAt
	img.UpdatedAt = m.now()
	stored := *img
	stored.Author = nil
	stored.Config = img.Config.Clone()
	m.images[img.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteImage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return ErrNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *MemoryStore) DeleteImagesByAuthor(_ context.Context, authorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, img := range m.images {
		if img.AuthorID == authorID {
			delete(m.images, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) matching(filter ImageFilter) []model.Image {
	var allowed map[string]struct{}
	if filter.RestrictToPublicIDs {
		allowed = make(map[string]struct{}, len(filter.PublicIDs))
		for _, id := range filter.PublicIDs {
			allowed[id] = struct{}{}
		}
	}
	var out []model.Image
	for _, img := range m.images {
		if filter.AuthorID != "" && img.AuthorID != filter.AuthorID {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[img.PublicID]; !ok {
				continue
			}
		}
		img.Config = img.Config.Clone()
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (m *MemoryStore) ListImages(_ context.Context, filter ImageFilter, offset, limit int) ([]model.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.matching(filter)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []model.Image{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemoryStore) CountImages(_ context.Context, filter ImageFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matching(filter)), nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.ClerkID == u.ClerkID || existing.Email == u.Email || existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	now := m.now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByClerkID(_ context.Context, clerkID string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ClerkID == clerkID {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetUsersByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && (other.Email == u.Email || other.Username == u.Username) {
			return ErrDuplicate
		}
	}
	// the ledger owns the balance
	u.CreditBalance = existing.CreditBalance
	u.ClerkID = existing.ClerkID
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = m.now()
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) AdjustCredits(_ context.Context, userID string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(userID, delta)
}

func (m *MemoryStore) adjustLocked(userID string, delta int) (int, error) {
	u, ok := m.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	u.CreditBalance += delta
	u.UpdatedAt = m.now()
	m.users[userID] = u
	return u.CreditBalance, nil
}

func (m *MemoryStore) RecordPurchase(_ context.Context, t *model.Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transactions {
		if existing.StripeID == t.StripeID {
			return 0, ErrDuplicate
		}
	}
	balance, err := m.adjustLocked(t.BuyerID, t.Credits)
	if err != nil {
		return 0, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = m.now()
	m.transactions[t.ID] = *t
	return balance, nil
}

func (m *MemoryStore) GetTransactionByStripeID(_ context.Context, stripeID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.transactions {
		if t.StripeID == stripeID {
			return &t, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListTransactionsByBuyer(_ context.Context, buyerID string) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Transaction
	for _, t := range m.transactions {
		if t.BuyerID == buyerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
