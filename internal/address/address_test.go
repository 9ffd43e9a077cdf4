package address

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var home = Address{ID: "a1", UserID: "u1", Recipient: "Ana Cruz", Line1: "12 Mabini St", City: "Makati", PostalCode: "1200"}

func TestMemoryBook_ScopedToOwner(t *testing.T) {
	b := NewMemoryBook(home)
	ctx := context.Background()

	got, err := b.GetAddress(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	_, err = b.GetAddress(ctx, "u2", "a1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	b.Delete("a1")
	_, err = b.GetAddress(ctx, "u1", "a1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresBook(t *testing.T) {
	b := &PostgresBook{DB: pgtest.New(t)}
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, home))
	got, err := b.GetAddress(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	_, err = b.GetAddress(ctx, "u2", "a1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
