package catalog

import (
	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/shopspring/decimal"
)

type Sort string

const (
	SortName      Sort = "name"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortNewest    Sort = "newest"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Filter struct {
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     Sort
	Limit    int
	Offset   int
}

func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case "":
		return SortName, nil
	case SortName, SortPriceAsc, SortPriceDesc, SortNewest:
		return Sort(s), nil
	default:
		return "", apperr.InvalidArgument("unknown sort %q", s)
	}
}

// Normalize clamps paging and fills defaults.
func (f Filter) Normalize() Filter {
	if f.Sort == "" {
		f.Sort = SortName
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
