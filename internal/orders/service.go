package orders

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
)

// Service serves order reads and operator status changes.
type Service struct {
	Orders Store
	Status *StatusCache
	Log    *slog.Logger
}

// GetOrder returns the order only if it belongs to userID; an empty userID
// skips the ownership check (back-office callers).
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if userID != "" && o.UserID != userID {
		return Order{}, apperr.NotFound("order %s", orderID)
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.Orders.ListOrders(ctx, userID)
}

// OrderStatus answers from the cache when it can. Like GetOrder, an order
// owned by someone else reads as not found.
func (s *Service) OrderStatus(ctx context.Context, userID, orderID string) (Status, error) {
	cs, ok, err := s.Status.Get(ctx, orderID)
	if err != nil {
		s.logger().Warn("status cache get failed", "order_id", orderID, "error", err)
	}
	if ok && cs.UserID != "" {
		if userID != "" && cs.UserID != userID {
			return "", apperr.NotFound("order %s", orderID)
		}
		return cs.Status, nil
	}
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	if ok {
		return cs.Status, nil
	}
	if err := s.Status.Warm(ctx, orderID, o.UserID, o.Status); err != nil {
		s.logger().Warn("status cache warm failed", "order_id", orderID, "error", err)
	}
	return o.Status, nil
}

// AdvanceStatus applies an operator transition. The failure list is kept so
// the history of a STOCK_UPDATE_FAILED order survives its resolution.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, to Status) (Order, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, to) {
		return Order{}, apperr.InvalidArgument("order %s cannot move from %s to %s", orderID, o.Status, to)
	}
	if err := s.Orders.UpdateOrderStatus(ctx, orderID, o.Status, to, o.Failures); err != nil {
		return Order{}, err
	}
	s.logger().Info("order status advanced", "order_id", orderID, "from", o.Status, "to", to)
	if err := s.Status.Set(ctx, orderID, o.UserID, to); err != nil {
		s.logger().Warn("status cache set failed", "order_id", orderID, "error", err)
	}
	return s.Orders.GetOrder(ctx, orderID)
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
