package orders

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/google/uuid"
)

// ErrStatusConflict means the order was no longer in the expected status
// when a transition was applied.
var ErrStatusConflict = fmt.Errorf("%w: order status changed concurrently", apperr.ErrInvalidArgument)

type Store interface {
	// CreateOrder persists the draft as a PENDING order. A draft that was
	// already stored yields the existing id with existed=true.
	CreateOrder(ctx context.Context, d Draft) (orderID string, existed bool, err error)
	// UpdateOrderStatus moves the order from `from` to `to` and replaces its
	// failure list.
	UpdateOrderStatus(ctx context.Context, orderID string, from, to Status, failures []Failure) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)
}

type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Order
	byExternal map[string]string
	// FailCreate, when set, is returned by CreateOrder.
	FailCreate error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Order), byExternal: make(map[string]string)}
}

func (s *MemoryStore) CreateOrder(_ context.Context, d Draft) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return "", false, s.FailCreate
	}
	if id, ok := s.byExternal[d.ID]; ok {
		return id, true, nil
	}
	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		ExternalID:      d.ID,
		UserID:          d.UserID,
		Status:          StatusPending,
		Lines:           slices.Clone(d.Lines),
		ShippingAddress: d.ShippingAddress,
		DeliveryMethod:  d.DeliveryMethod,
		PaymentMethod:   d.PaymentMethod,
		TotalAmount:     d.TotalAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.byID[o.ID] = o
	s.byExternal[d.ID] = o.ID
	return o.ID, false, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, orderID string, from, to Status, failures []Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[orderID]
	if !ok {
		return apperr.NotFound("order %s", orderID)
	}
	if o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	o.Failures = slices.Clone(failures)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[orderID]
	if !ok {
		return Order{}, apperr.NotFound("order %s", orderID)
	}
	return cloneOrder(*o), nil
}

func (s *MemoryStore) ListOrders(_ context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Order{}
	for _, o := range s.byID {
		if o.UserID == userID {
			out = append(out, cloneOrder(*o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func cloneOrder(o Order) Order {
	o.Lines = slices.Clone(o.Lines)
	o.Failures = slices.Clone(o.Failures)
	return o
}
