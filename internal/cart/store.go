package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrConflict is returned by SaveCart when the stored revision moved on
// since the cart was loaded.
var ErrConflict = errors.New("cart was modified concurrently")

type Store interface {
	// LoadCart returns an empty cart with revision 0 when the user has none.
	LoadCart(ctx context.Context, userID string) (*Cart, error)
	// SaveCart persists the cart if its revision still matches the stored
	// one, then bumps c.Revision.
	SaveCart(ctx context.Context, c *Cart) error
}

type memoryEntry struct {
	revision  int64
	updatedAt time.Time
	lines     []Line
}

type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]memoryEntry)}
}

func (s *MemoryStore) LoadCart(_ context.Context, userID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.carts[userID]
	if !ok {
		return New(userID), nil
	}
	return FromLines(userID, e.revision, e.updatedAt, e.lines), nil
}

func (s *MemoryStore) SaveCart(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[c.UserID].revision != c.Revision {
		return ErrConflict
	}
	c.Revision++
	s.carts[c.UserID] = memoryEntry{revision: c.Revision, updatedAt: c.UpdatedAt, lines: c.Lines()}
	return nil
}
