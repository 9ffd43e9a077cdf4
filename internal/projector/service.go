// Package projector turns order.committed events into read-side state:
// the order status cache and the operator review queue.
package projector

import (
	"context"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Service struct {
	Redis       *redis.Client
	Status      *orders.StatusCache
	ServiceName string
	Log         *slog.Logger
}

// ReviewItem is what operators pop from the review queue.
type ReviewItem struct {
	OrderID  string           `json:"order_id"`
	UserID   string           `json:"user_id"`
	Total    string           `json:"total_amount"`
	Failures []orders.Failure `json:"failures"`
}

// HandleOrderCommitted is installed as the consumer handler. Each event is
// applied once; a failed apply releases its dedup mark so redelivery retries.
func (s *Service) HandleOrderCommitted(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message, nothing to retry
		s.logger().Error("undecodable envelope", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != orders.EventOrderCommitted {
		return nil
	}

	dkey := redisx.DedupKey(s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		_ = s.Redis.Del(context.WithoutCancel(ctx), dkey).Err()
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderCommittedPayload](env.Payload)
	if err != nil {
		s.logger().Error("undecodable payload", "event_id", env.EventID, "error", err)
		return nil
	}
	log := s.logger().With("order_id", p.OrderID, "status", p.Status, "trace_id", env.TraceID)

	if err := s.Status.Warm(ctx, p.OrderID, p.UserID, p.Status); err != nil {
		return fmt.Errorf("warm status %s: %w", p.OrderID, err)
	}
	if p.Status != orders.StatusStockUpdateFailed {
		log.Debug("order projected")
		return nil
	}

	item := kafkax.MustMarshal(ReviewItem{OrderID: p.OrderID, UserID: p.UserID, Total: p.TotalAmount, Failures: p.Failures})
	if err := s.Redis.LPush(ctx, redisx.KeyReviewQueue, item).Err(); err != nil {
		return fmt.Errorf("queue review %s: %w", p.OrderID, err)
	}
	log.Warn("order queued for stock review", "failed_lines", len(p.Failures))
	return nil
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
