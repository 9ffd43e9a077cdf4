package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a read-through copy of stored carts. Writers never refresh it;
// they invalidate with the revision they saved, and Set refuses snapshots
// older than that revision.
type Cache interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Set(ctx context.Context, c *Cart) error
	Invalidate(ctx context.Context, userID string, revision int64) error
}

// cart:{user_id} is a hash: rev holds the newest known revision, data the
// cart JSON for that revision (absent after an invalidation).
var (
	setIfCurrent = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'rev', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)
	invalidateAt = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
redis.call('HDEL', KEYS[1], 'data')
if not cur or tonumber(cur) < tonumber(ARGV[1]) then
  redis.call('HSET', KEYS[1], 'rev', ARGV[1])
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, baseTTL: redisx.TTLCart}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*Cart, error) {
	data, err := r.client.HGet(ctx, redisx.CartKey(userID), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &c, nil
}

// Set stores the cart with a jittered TTL so entries written together do not
// expire together. A cart older than the cached revision is dropped silently.
func (r *RedisCache) Set(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	ttl := r.baseTTL + time.Duration(rand.IntN(5))*time.Minute
	err = setIfCurrent.Run(ctx, r.client, []string{redisx.CartKey(c.UserID)},
		c.Revision, data, ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, userID string, revision int64) error {
	err := invalidateAt.Run(ctx, r.client, []string{redisx.CartKey(userID)},
		revision, r.baseTTL.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

// NopCache never hits; used when no Redis is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Cart, error) { return nil, ErrCacheMiss }
func (NopCache) Set(context.Context, *Cart) error { return nil }
func (NopCache) Invalidate(context.Context, string, int64) error { return nil }
