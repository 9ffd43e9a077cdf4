package checkout

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/google/uuid"
)

// CartReader must return the stored cart, not a cached copy.
type CartReader interface {
	LoadCart(ctx context.Context, userID string) (*cart.Cart, error)
}

// Planner prices the selected part of a cart. It reads only; nothing it
// touches is mutated.
type Planner struct {
	Carts     CartReader
	Catalog   catalog.Store
	Addresses address.Book
	Now       func() time.Time // optional
}

// PlanCheckout builds a draft from the selected lines of the user's cart.
// Any product or version that cannot be priced aborts the whole plan.
func (p *Planner) PlanCheckout(ctx context.Context, userID, addressID, delivery, payment string) (orders.Draft, error) {
	if userID == "" {
		return orders.Draft{}, apperr.InvalidArgument("user id is required")
	}
	dm, err := orders.ParseDeliveryMethod(delivery)
	if err != nil {
		return orders.Draft{}, err
	}
	pm, err := orders.ParsePaymentMethod(payment)
	if err != nil {
		return orders.Draft{}, err
	}

	c, err := p.Carts.LoadCart(ctx, userID)
	if err != nil {
		return orders.Draft{}, err
	}

	var lines []orders.Line
	products := map[string]catalog.Product{}
	for l := range c.SelectedLines() {
		prod, ok := products[l.ProductID]
		if !ok {
			if prod, err = p.Catalog.GetProduct(ctx, l.ProductID); err != nil {
				return orders.Draft{}, err
			}
			products[l.ProductID] = prod
		}
		price, err := prod.UnitPrice(l.Version)
		if err != nil {
			return orders.Draft{}, err
		}
		lines = append(lines, orders.Line{
			ProductID: l.ProductID,
			Version:   l.Version,
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}
	if len(lines) == 0 {
		return orders.Draft{}, apperr.ErrEmptySelection
	}

	addr, err := p.Addresses.GetAddress(ctx, userID, addressID)
	if err != nil {
		return orders.Draft{}, err
	}

	return orders.Draft{
		ID:              uuid.NewString(),
		UserID:          userID,
		Lines:           lines,
		ShippingAddress: addr,
		DeliveryMethod:  dm,
		PaymentMethod:   pm,
		TotalAmount:     orders.SumLines(lines),
		PlannedAt:       p.now(),
	}, nil
}

func (p *Planner) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now()
}
