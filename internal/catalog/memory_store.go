package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
)

// MemoryStore implements Store and Lister with in-memory storage.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*Product
}

func NewMemoryStore(products ...Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]*Product)}
	for _, p := range products {
		s.Put(p)
	}
	return s
}

// Put inserts or replaces a product.
func (s *MemoryStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(p)
	s.products[p.ID] = &cp
}

func (s *MemoryStore) GetProduct(_ context.Context, productID string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return Product{}, apperr.NotFound("product %s", productID)
	}
	return clone(*p), nil
}

func (s *MemoryStore) DecrementVersionStock(_ context.Context, key VersionKey, amount int) error {
	if amount < 1 {
		return apperr.InvalidArgument("decrement amount %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[key.ProductID]
	if !ok {
		return apperr.NotFound("product %s", key.ProductID)
	}
	for i := range p.Versions {
		v := &p.Versions[i]
		if v.Label != key.Label {
			continue
		}
		if v.Available < amount {
			return apperr.InsufficientStock("%s: requested %d, available %d", key, amount, v.Available)
		}
		v.Available -= amount
		return nil
	}
	return apperr.NotFound("version %s", key)
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Product, error) {
	f = f.Normalize()
	s.mu.RLock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if matches(*p, f) {
			out = append(out, clone(*p))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Product) int {
		var c int
		switch f.Sort {
		case SortPriceAsc:
			c = a.Price.Cmp(b.Price)
		case SortPriceDesc:
			c = b.Price.Cmp(a.Price)
		case SortNewest:
			c = b.CreatedAt.Compare(a.CreatedAt)
		default:
			c = strings.Compare(a.Name, b.Name)
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		return c
	})

	if f.Offset >= len(out) {
		return []Product{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(p Product, f Filter) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && !p.InStock() {
		return false
	}
	return true
}

func clone(p Product) Product {
	p.Versions = slices.Clone(p.Versions)
	return p
}
