package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type DraftStore interface {
	SaveDraft(ctx context.Context, d orders.Draft) error
	LoadDraft(ctx context.Context, draftID string) (orders.Draft, error)
}

// RedisDraftStore keeps planned drafts at checkout:draft:{id} until they
// expire.
type RedisDraftStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (s *RedisDraftStore) SaveDraft(ctx context.Context, d orders.Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, redisx.DraftKey(d.ID), b, s.TTL).Err(); err != nil {
		return apperr.Storage("save draft", err)
	}
	return nil
}

func (s *RedisDraftStore) LoadDraft(ctx context.Context, draftID string) (orders.Draft, error) {
	b, err := s.Redis.Get(ctx, redisx.DraftKey(draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.Draft{}, apperr.NotFound("draft %s (expired or never planned)", draftID)
	}
	if err != nil {
		return orders.Draft{}, apperr.Storage("load draft", err)
	}
	var d orders.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return orders.Draft{}, apperr.Storage("decode draft", err)
	}
	return d, nil
}
