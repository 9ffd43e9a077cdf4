package redisx

import (
	"fmt"
	"time"
)

const (
	// Cart read cache: cart:{user_id} -> cart JSON
	KeyCart = "cart:%s"

	// Planned checkout awaiting commit: checkout:draft:{draft_id} -> draft JSON
	KeyDraft = "checkout:draft:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Orders whose stock update failed, newest first, for operator review.
	KeyReviewQueue = "orders:review"
)

var (
	TTLCart        = 15 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func CartKey(userID string) string { return fmt.Sprintf(KeyCart, userID) }
func DraftKey(draftID string) string { return fmt.Sprintf(KeyDraft, draftID) }
func OrderStatusKey(orderID string) string { return fmt.Sprintf(KeyOrderStatus, orderID) }
func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }
