package session

import (
	"context"
	"testing"
	"time"

	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWithCart(t *testing.T, id string) *checkout.Session {
	t.Helper()
	c := catalog.Default()
	shirt, err := c.Get(1)
	require.NoError(t, err)
	vinyl, err := c.Get(2)
	require.NoError(t, err)

	s := checkout.NewSession(id, "USD")
	require.NoError(t, s.AddItem(shirt, "M"))
	require.NoError(t, s.AddItem(shirt, "M"))
	require.NoError(t, s.AddItem(vinyl, ""))
	return s
}

// ============================================
// MemoryStore Tests
// ============================================

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	s := sessionWithCart(t, "s-1")

	require.NoError(t, store.Save(ctx, s))
	got, err := store.Get(ctx, "s-1")

	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, 3, got.Cart.ItemCount())
	assert.Equal(t, "85", got.Cart.Total().String())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	s := sessionWithCart(t, "s-1")
	require.NoError(t, store.Save(ctx, s))

	s.Cart.Clear()
	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Cart.ItemCount())

	got.Cart.Clear()
	again, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Cart.ItemCount())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	got, err := store.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, got)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	clock := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sessionWithCart(t, "s-1")))

	clock = clock.Add(59 * time.Second)
	_, err := store.Get(ctx, "s-1")
	require.NoError(t, err)

	clock = clock.Add(time.Second)
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, sessionWithCart(t, "s-2")))
	store.mu.RLock()
	_, stillThere := store.sessions["s-1"]
	store.mu.RUnlock()
	assert.False(t, stillThere, "expired sessions are evicted on save")
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sessionWithCart(t, "s-1")))

	require.NoError(t, store.Delete(ctx, "s-1"))
	require.NoError(t, store.Delete(ctx, "s-1"))

	_, err := store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
