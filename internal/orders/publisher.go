package orders

import (
	"context"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Publisher interface {
	PublishCommitted(ctx context.Context, o Order) error
}

type traceKey struct{}

// WithTraceID tags ctx with the request id carried on emitted events.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

type KafkaPublisher struct {
	Producer *kafkax.Producer
	Service  string
}

func (p *KafkaPublisher) PublishCommitted(ctx context.Context, o Order) error {
	return p.Producer.Publish(ctx, PartitionKey(o.ID), CommittedEnvelope(o, p.Service, TraceID(ctx)),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCommitted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// CommittedEnvelope encodes the OrderCommitted event for o.
func CommittedEnvelope(o Order, producer, traceID string) []byte {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCommitted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderCommittedPayload{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Status:      o.Status,
			TotalAmount: o.TotalAmount.StringFixed(2),
			LineCount:   len(o.Lines),
			Failures:    o.Failures,
		}),
	}
	return kafkax.MustMarshal(ev)
}
