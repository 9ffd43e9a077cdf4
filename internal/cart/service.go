package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"golang.org/x/sync/singleflight"
)

const maxSaveAttempts = 3

type Service struct {
	store   Store
	catalog catalog.Store
	cache   Cache
	log     *slog.Logger
	sfg     singleflight.Group // collapses concurrent cache misses per user
}

func NewService(store Store, cat catalog.Store, cache Cache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, catalog: cat, cache: cache, log: logger}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (any, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cart cache get failed", "user_id", userID, "error", err)
		}

		c, err = s.store.LoadCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		snapshot := c.Clone()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, snapshot); err != nil {
				s.log.Warn("cart cache set failed", "user_id", userID, "error", err)
			}
		}()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	// callers sharing a singleflight result must not share the aggregate
	return v.(*Cart).Clone(), nil
}

// LoadCart reads the stored cart, bypassing the cache. Checkout plans from
// this so a cached copy can never turn into an order.
func (s *Service) LoadCart(ctx context.Context, userID string) (*Cart, error) {
	return s.store.LoadCart(ctx, userID)
}

// AddToCart verifies the product and version exist before merging the line.
func (s *Service) AddToCart(ctx context.Context, userID string, key LineKey, quantity int) (*Cart, error) {
	p, err := s.catalog.GetProduct(ctx, key.ProductID)
	if err != nil {
		return nil, err
	}
	if _, err := p.UnitPrice(key.Label); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(c *Cart) error { return c.AddLine(key, quantity) })
}

func (s *Service) UpdateQuantity(ctx context.Context, userID string, key LineKey, quantity int) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error { return c.SetQuantity(key, quantity) })
}

func (s *Service) ToggleSelection(ctx context.Context, userID string, key LineKey) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error { return c.ToggleSelected(key) })
}

func (s *Service) RemoveFromCart(ctx context.Context, userID string, key LineKey) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error { return c.RemoveLine(key) })
}

// PruneLines removes exactly the given keys; lines added after they were
// captured are left alone.
func (s *Service) PruneLines(ctx context.Context, userID string, keys []LineKey) error {
	_, err := s.mutate(ctx, userID, func(c *Cart) error {
		if removed := c.Prune(keys); removed != len(keys) {
			s.log.Info("cart prune skipped missing lines", "user_id", userID, "requested", len(keys), "removed", removed)
		}
		return nil
	})
	return err
}

// mutate runs load-modify-save, retrying when another request saved the
// same cart in between.
func (s *Service) mutate(ctx context.Context, userID string, fn func(*Cart) error) (*Cart, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.store.LoadCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		err = s.store.SaveCart(ctx, c)
		if err == nil {
			s.invalidate(userID, c.Revision)
			return c, nil
		}
		if !errors.Is(err, ErrConflict) || attempt == maxSaveAttempts {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		s.log.Debug("cart save conflict, retrying", "user_id", userID, "attempt", attempt)
	}
}

func (s *Service) invalidate(userID string, revision int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID, revision); err != nil {
		s.log.Warn("cart cache invalidate failed", "user_id", userID, "error", err)
	}
}
