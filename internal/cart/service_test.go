package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	m       sync.Mutex
	carts   map[string]*Cart
	floor   map[string]int64
	deletes int
	err     error
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[string]*Cart{}, floor: map[string]int64{}}
}

func (m *mockCache) Get(_ context.Context, userID string) (*Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrCacheMiss
	}
	return c.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, c *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if c.Revision >= m.floor[c.UserID] {
		m.carts[c.UserID] = c.Clone()
	}
	return m.err
}

func (m *mockCache) Invalidate(_ context.Context, userID string, revision int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, userID)
	m.floor[userID] = max(m.floor[userID], revision)
	m.deletes++
	return m.err
}

// notifyCache reports every finished Set, including the background refill.
type notifyCache struct {
	Cache
	sets chan struct{}
}

func (n notifyCache) Set(ctx context.Context, c *Cart) error {
	err := n.Cache.Set(ctx, c)
	n.sets <- struct{}{}
	return err
}

// gatedStore holds the first load made after arm() until release is closed.
type gatedStore struct {
	*MemoryStore
	armed   atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{MemoryStore: NewMemoryStore(), loaded: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) LoadCart(ctx context.Context, userID string) (*Cart, error) {
	c, err := g.MemoryStore.LoadCart(ctx, userID)
	if g.armed.CompareAndSwap(true, false) {
		close(g.loaded)
		<-g.release
	}
	return c, err
}

func (m *mockCache) cached(userID string) bool {
	m.m.Lock()
	defer m.m.Unlock()
	_, ok := m.carts[userID]
	return ok
}

// flakyStore fails the first `conflicts` saves with ErrConflict.
type flakyStore struct {
	*MemoryStore
	mu        sync.Mutex
	conflicts int
	saves     int
	loadErr   error
}

func (f *flakyStore) LoadCart(ctx context.Context, userID string) (*Cart, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryStore.LoadCart(ctx, userID)
}

func (f *flakyStore) SaveCart(ctx context.Context, c *Cart) error {
	f.mu.Lock()
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return ErrConflict
	}
	f.mu.Unlock()
	return f.MemoryStore.SaveCart(ctx, c)
}

func testCatalog() *catalog.MemoryStore {
	return catalog.NewMemoryStore(
		catalog.Product{ID: "tee", Name: "Tee", Price: decimal.NewFromInt(250),
			Versions: []catalog.Version{{Label: "small", Available: 5}, {Label: "large", Available: 5}}},
		catalog.Product{ID: "mug", Name: "Mug", Price: decimal.NewFromInt(120),
			Versions: []catalog.Version{{Label: "", Available: 10}}},
	)
}

func newTestService(store Store) (*Service, *mockCache) {
	cache := newMockCache()
	return NewService(store, testCatalog(), cache, nil), cache
}

func TestService_AddToCartValidatesCatalog(t *testing.T) {
	svc, _ := newTestService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "u1", LineKey{ProductID: "ghost"}, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AddToCart(ctx, "u1", LineKey{ProductID: "tee", Label: "xl"}, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AddToCart(ctx, "u1", teeSmall, 2)
	require.NoError(t, err)
	c, err := svc.AddToCart(ctx, "u1", teeSmall, 3)
	require.NoError(t, err)

	l, ok := c.Line(teeSmall)
	require.True(t, ok)
	assert.Equal(t, 5, l.Quantity)
}

func TestService_GetCartCachesAndMutationsInvalidate(t *testing.T) {
	svc, cache := newTestService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "u1", mug, 1)
	require.NoError(t, err)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Eventually(t, func() bool { return cache.cached("u1") }, time.Second, 10*time.Millisecond)

	_, err = svc.ToggleSelection(ctx, "u1", mug)
	require.NoError(t, err)
	assert.False(t, cache.cached("u1"))

	c, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	l, _ := c.Line(mug)
	assert.False(t, l.Selected)
}

func TestService_GetCartIgnoresCacheErrors(t *testing.T) {
	store := NewMemoryStore()
	svc, cache := newTestService(store)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "u1", mug, 2)
	require.NoError(t, err)
	cache.m.Lock()
	cache.err = errors.New("redis down")
	cache.m.Unlock()

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestService_RetriesOnConflict(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), conflicts: 2}
	svc, _ := newTestService(store)

	c, err := svc.AddToCart(context.Background(), "u1", mug, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, store.saves)
}

func TestService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), conflicts: 10}
	svc, _ := newTestService(store)

	_, err := svc.AddToCart(context.Background(), "u1", mug, 1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, maxSaveAttempts, store.saves)
}

func TestService_StorageFailurePropagates(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), loadErr: apperr.Storage("select cart", errors.New("down"))}
	svc, _ := newTestService(store)

	_, err := svc.UpdateQuantity(context.Background(), "u1", mug, 2)
	assert.ErrorIs(t, err, apperr.ErrStorageFailure)
}

func TestService_PruneKeepsLinesAddedLater(t *testing.T) {
	svc, _ := newTestService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "u1", teeSmall, 2)
	require.NoError(t, err)
	frozen := []LineKey{teeSmall}

	// added after the draft was taken, and still selected
	_, err = svc.AddToCart(ctx, "u1", mug, 1)
	require.NoError(t, err)

	require.NoError(t, svc.PruneLines(ctx, "u1", frozen))

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []LineKey{mug}, keys(c.Lines()))
}

func TestService_RemoveAndUpdateMissingLine(t *testing.T) {
	svc, _ := newTestService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.RemoveFromCart(ctx, "u1", mug)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.UpdateQuantity(ctx, "u1", mug, 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_StaleRefillCannotResurrectPrunedLines(t *testing.T) {
	redisCache, _ := setupTestRedis(t)
	cache := notifyCache{Cache: redisCache, sets: make(chan struct{}, 4)}
	store := newGatedStore()
	svc := NewService(store, testCatalog(), cache, nil)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "u1", teeSmall, 2)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, "u1", mug, 1)
	require.NoError(t, err)

	// a read loads the cart, then stalls before its cache refill
	store.armed.Store(true)
	done := make(chan *Cart, 1)
	go func() {
		c, err := svc.GetCart(ctx, "u1")
		assert.NoError(t, err)
		done <- c
	}()
	<-store.loaded

	require.NoError(t, svc.PruneLines(ctx, "u1", []LineKey{teeSmall}))
	close(store.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, 2, stale.Len())
	<-cache.sets

	_, err = redisCache.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []LineKey{mug}, keys(c.Lines()))

	fresh, err := svc.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []LineKey{mug}, keys(fresh.Lines()))
}
