package orders

import (
	"encoding/json"
	"time"
)

const EventOrderCommitted = "OrderCommitted"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCommittedPayload struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	LineCount   int       `json:"line_count"`
	Failures    []Failure `json:"failures,omitempty"`
}
