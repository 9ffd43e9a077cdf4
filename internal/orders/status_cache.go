package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// CachedStatus is the value behind order_status:{id}. UserID lets readers
// check ownership without touching Postgres; it is empty on entries written
// before owners were cached.
type CachedStatus struct {
	Status    Status    `json:"status"`
	UserID    string    `json:"user_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache keeps order_status:{id} warm so status polling skips Postgres.
type StatusCache struct{ Redis *redis.Client }

func (c *StatusCache) Set(ctx context.Context, orderID, userID string, s Status) error {
	if c == nil || c.Redis == nil {
		return nil
	}
	b, _ := json.Marshal(CachedStatus{Status: s, UserID: userID, UpdatedAt: time.Now().UTC()})
	return c.Redis.Set(ctx, redisx.OrderStatusKey(orderID), b, redisx.TTLStatusCache).Err()
}

// Warm sets the status only when nothing is cached yet, so a late event or a
// slow database read cannot overwrite a newer status.
func (c *StatusCache) Warm(ctx context.Context, orderID, userID string, s Status) error {
	if c == nil || c.Redis == nil {
		return nil
	}
	b, _ := json.Marshal(CachedStatus{Status: s, UserID: userID, UpdatedAt: time.Now().UTC()})
	return c.Redis.SetNX(ctx, redisx.OrderStatusKey(orderID), b, redisx.TTLStatusCache).Err()
}

// Get reports ok=false on a miss.
func (c *StatusCache) Get(ctx context.Context, orderID string) (CachedStatus, bool, error) {
	if c == nil || c.Redis == nil {
		return CachedStatus{}, false, nil
	}
	b, err := c.Redis.Get(ctx, redisx.OrderStatusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	var cs CachedStatus
	if err := json.Unmarshal(b, &cs); err != nil {
		return CachedStatus{}, false, err
	}
	return cs, true, nil
}
