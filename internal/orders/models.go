package orders

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/shopspring/decimal"
)

type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "Standard"
	DeliveryExpress  DeliveryMethod = "Express"
)

func ParseDeliveryMethod(s string) (DeliveryMethod, error) {
	for _, m := range []DeliveryMethod{DeliveryStandard, DeliveryExpress} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", apperr.InvalidArgument("unknown delivery method %q", s)
}

type PaymentMethod string

const (
	PaymentGCash    PaymentMethod = "GCash"
	PaymentPayMongo PaymentMethod = "PayMongo"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range []PaymentMethod{PaymentGCash, PaymentPayMongo} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", apperr.InvalidArgument("unknown payment method %q", s)
}

// Line is a priced, frozen copy of a cart line.
type Line struct {
	ProductID string          `json:"product_id"`
	Version   string          `json:"version,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l Line) Key() catalog.VersionKey {
	return catalog.VersionKey{ProductID: l.ProductID, Label: l.Version}
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Draft is the unpersisted result of planning a checkout. Its ID doubles as
// the order's external id, which makes committing the same draft twice
// return the first order.
type Draft struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Lines           []Line          `json:"lines"`
	ShippingAddress address.Address `json:"shipping_address"`
	DeliveryMethod  DeliveryMethod  `json:"delivery_method"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PlannedAt       time.Time       `json:"planned_at"`
}

func (d Draft) Keys() []catalog.VersionKey {
	out := make([]catalog.VersionKey, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, l.Key())
	}
	return out
}

func (d Draft) Validate() error {
	switch {
	case d.ID == "":
		return apperr.InvalidArgument("draft id is required")
	case d.UserID == "":
		return apperr.InvalidArgument("draft user is required")
	case len(d.Lines) == 0:
		return apperr.ErrEmptySelection
	}
	seen := make(map[catalog.VersionKey]bool, len(d.Lines))
	for _, l := range d.Lines {
		if l.Quantity < 1 {
			return apperr.InvalidArgument("line %s has quantity %d", l.Key(), l.Quantity)
		}
		if l.UnitPrice.IsNegative() {
			return apperr.InvalidArgument("line %s has negative price", l.Key())
		}
		if seen[l.Key()] {
			return apperr.InvalidArgument("line %s appears twice", l.Key())
		}
		seen[l.Key()] = true
	}
	if _, err := ParseDeliveryMethod(string(d.DeliveryMethod)); err != nil {
		return err
	}
	if _, err := ParsePaymentMethod(string(d.PaymentMethod)); err != nil {
		return err
	}
	if !d.TotalAmount.Equal(SumLines(d.Lines)) {
		return apperr.InvalidArgument("draft total %s does not match lines %s", d.TotalAmount, SumLines(d.Lines))
	}
	return nil
}

// Failure reasons recorded against a line whose stock could not be taken.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonNotFound          = "not_found"
	ReasonStorageFailure    = "storage_failure"
)

type Failure struct {
	ProductID string `json:"product_id"`
	Version   string `json:"version,omitempty"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	ExternalID      string          `json:"external_id"`
	UserID          string          `json:"user_id"`
	Status          Status          `json:"status"`
	Lines           []Line          `json:"lines"`
	ShippingAddress address.Address `json:"shipping_address"`
	DeliveryMethod  DeliveryMethod  `json:"delivery_method"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Failures        []Failure       `json:"failures,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
