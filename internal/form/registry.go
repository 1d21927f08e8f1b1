package form

import (
	"errors"
	"sync"
	"time"

	"imaginify/internal/transformation"

	"github.com/google/uuid"
)

// ErrDraftNotFound is returned for unknown, expired or foreign drafts.
var ErrDraftNotFound = errors.New("draft not found")

// Registry owns the open drafts of all users.
type Registry struct {
	mu       sync.Mutex
	drafts   map[string]*Draft
	debounce time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a registry whose drafts debounce input for debounce
// and expire after ttl without activity. A zero ttl disables expiry.
func NewRegistry(debounce, ttl time.Duration) *Registry {
	return &Registry{
		drafts:   make(map[string]*Draft),
		debounce: debounce,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a new draft. seed is nil for new images.
func (r *Registry) Create(ownerID string, action Action, typ transformation.Type, seed *Seed) *Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	d := newDraft(uuid.NewString(), ownerID, action, typ, seed, r.debounce, r.now)
	r.drafts[d.id] = d
	return d
}

// Get returns the draft if it exists and belongs to ownerID.
func (r *Registry) Get(id, ownerID string) (*Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	d, ok := r.drafts[id]
	if !ok || d.ownerID != ownerID {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

// Discard removes a draft and cancels its pending input.
func (r *Registry) Discard(id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.ownerID != ownerID {
		return ErrDraftNotFound
	}
	d.stop()
	delete(r.drafts, id)
	return nil
}

// Len returns the number of open drafts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

// Close stops every draft timer and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.drafts {
		d.stop()
		delete(r.drafts, id)
	}
}

func (r *Registry) pruneLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, d := range r.drafts {
		if d.lastUpdate().Before(cutoff) {
			d.stop()
			delete(r.drafts, id)
		}
	}
}
