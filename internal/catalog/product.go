package catalog

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/shopspring/decimal"
)

// VersionKey identifies a purchasable variant. An empty Label is the
// product's default (unnamed) version.
type VersionKey struct {
	ProductID string `json:"product_id"`
	Label     string `json:"version,omitempty"`
}

func (k VersionKey) String() string {
	if k.Label == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.Label
}

type Version struct {
	Label     string           `json:"label"`
	Price     *decimal.Decimal `json:"price,omitempty"` // nil: inherit Product.Price
	Available int              `json:"available"`
}

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Versions  []Version       `json:"versions"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p Product) Version(label string) (Version, bool) {
	for _, v := range p.Versions {
		if v.Label == label {
			return v, true
		}
	}
	return Version{}, false
}

// UnitPrice resolves the effective price of one version of the product.
func (p Product) UnitPrice(label string) (decimal.Decimal, error) {
	v, ok := p.Version(label)
	if !ok {
		return decimal.Zero, apperr.NotFound("version %q of product %s", label, p.ID)
	}
	if v.Price != nil {
		return *v.Price, nil
	}
	return p.Price, nil
}

func (p Product) InStock() bool {
	for _, v := range p.Versions {
		if v.Available > 0 {
			return true
		}
	}
	return false
}

// Store is the slice of the catalog the checkout core depends on.
type Store interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	// DecrementVersionStock subtracts amount only if at least amount units
	// are available, as one atomic step.
	DecrementVersionStock(ctx context.Context, key VersionKey, amount int) error
}

type Lister interface {
	List(ctx context.Context, f Filter) ([]Product, error)
}
