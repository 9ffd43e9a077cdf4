package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func testProducts() []Product {
	now := time.Now()
	return []Product{
		{ID: "tee", Name: "Linen Tee", Price: price("250.00"), CreatedAt: now.Add(-2 * time.Hour),
			Versions: []Version{{Label: "small", Available: 5}, {Label: "large", Price: pricePtr("275.50"), Available: 0}}},
		{ID: "mug", Name: "Enamel Mug", Price: price("120.00"), CreatedAt: now,
			Versions: []Version{{Label: "", Available: 12}}},
		{ID: "cap", Name: "Canvas Cap", Price: price("180.00"), CreatedAt: now.Add(-time.Hour),
			Versions: []Version{{Label: "", Available: 0}}},
	}
}

func TestUnitPrice(t *testing.T) {
	tee := testProducts()[0]

	p, err := tee.UnitPrice("small")
	require.NoError(t, err)
	assert.True(t, p.Equal(price("250")))

	p, err = tee.UnitPrice("large")
	require.NoError(t, err)
	assert.True(t, p.Equal(price("275.50")))

	_, err = tee.UnitPrice("xl")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStore_GetProductReturnsCopy(t *testing.T) {
	s := NewMemoryStore(testProducts()...)
	ctx := context.Background()

	p, err := s.GetProduct(ctx, "tee")
	require.NoError(t, err)
	p.Versions[0].Available = 999

	again, err := s.GetProduct(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, 5, again.Versions[0].Available)

	_, err = s.GetProduct(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStore_Decrement(t *testing.T) {
	s := NewMemoryStore(testProducts()...)
	ctx := context.Background()

	require.NoError(t, s.DecrementVersionStock(ctx, VersionKey{"tee", "small"}, 2))
	p, _ := s.GetProduct(ctx, "tee")
	v, _ := p.Version("small")
	assert.Equal(t, 3, v.Available)

	err := s.DecrementVersionStock(ctx, VersionKey{"tee", "small"}, 4)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	err = s.DecrementVersionStock(ctx, VersionKey{"tee", "xl"}, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = s.DecrementVersionStock(ctx, VersionKey{"tee", "small"}, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestMemoryStore_ConcurrentDecrementNeverOversells(t *testing.T) {
	s := NewMemoryStore(Product{ID: "p", Name: "P", Price: price("1"), Versions: []Version{{Label: "v", Available: 5}}})
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.DecrementVersionStock(ctx, VersionKey{"p", "v"}, 3)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, apperr.ErrInsufficientStock) {
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, fail)
	p, _ := s.GetProduct(ctx, "p")
	assert.Equal(t, 2, p.Versions[0].Available)
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore(testProducts()...)
	ctx := context.Background()

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cap", "mug", "tee"}, ids(all))

	byPrice, err := s.List(ctx, Filter{Sort: SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"tee", "cap", "mug"}, ids(byPrice))

	newest, err := s.List(ctx, Filter{Sort: SortNewest, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"mug", "cap"}, ids(newest))

	inStock, err := s.List(ctx, Filter{InStock: true, MaxPrice: pricePtr("200")})
	require.NoError(t, err)
	assert.Equal(t, []string{"mug"}, ids(inStock))

	q, err := s.List(ctx, Filter{Query: "TEE", MinPrice: pricePtr("100")})
	require.NoError(t, err)
	assert.Equal(t, []string{"tee"}, ids(q))

	past, err := s.List(ctx, Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestParseSortAndNormalize(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortName, s)

	_, err = ParseSort("random")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	f := Filter{Limit: 10_000, Offset: -1}.Normalize()
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, SortName, f.Sort)
}

func ids(ps []Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
