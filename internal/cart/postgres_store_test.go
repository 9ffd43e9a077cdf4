package cart

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/postgres/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_SaveLoad(t *testing.T) {
	s := &PostgresStore{DB: pgtest.New(t)}
	ctx := context.Background()

	c, err := s.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, c.Revision)
	assert.Zero(t, c.Len())

	require.NoError(t, c.AddLine(teeSmall, 2))
	require.NoError(t, c.AddLine(mug, 1))
	require.NoError(t, c.ToggleSelected(mug))
	require.NoError(t, s.SaveCart(ctx, c))
	assert.Equal(t, int64(1), c.Revision)

	loaded, err := s.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, c.Lines(), loaded.Lines())
	assert.Equal(t, int64(1), loaded.Revision)

	stale, err := s.LoadCart(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, loaded.RemoveLine(mug))
	require.NoError(t, s.SaveCart(ctx, loaded))

	require.NoError(t, stale.AddLine(teeLarge, 1))
	assert.ErrorIs(t, s.SaveCart(ctx, stale), ErrConflict)

	final, err := s.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []LineKey{teeSmall}, keys(final.Lines()))
}

func TestPostgresStore_FirstSaveConflict(t *testing.T) {
	s := &PostgresStore{DB: pgtest.New(t)}
	ctx := context.Background()

	a, _ := s.LoadCart(ctx, "u2")
	b, _ := s.LoadCart(ctx, "u2")
	require.NoError(t, a.AddLine(mug, 1))
	require.NoError(t, b.AddLine(mug, 1))

	require.NoError(t, s.SaveCart(ctx, a))
	assert.ErrorIs(t, s.SaveCart(ctx, b), ErrConflict)
}
