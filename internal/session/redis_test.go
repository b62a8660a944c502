package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore on it
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, 30*time.Minute), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	s := sessionWithCart(t, "s-1")
	require.NoError(t, s.ProceedToPayment())
	require.NoError(t, s.SelectMethod("mobile_money"))

	require.NoError(t, store.Save(ctx, s))
	got, err := store.Get(ctx, "s-1")

	require.NoError(t, err)
	assert.Equal(t, checkout.StageDetails, got.Stage)
	assert.Equal(t, payment.MethodMobileMoney, got.Method)
	assert.Equal(t, checkout.PaymentIdle, got.Payment)
	require.Len(t, got.Cart.Lines(), 2)
	assert.Equal(t, "M", got.Cart.Lines()[0].Size)
	assert.Equal(t, 2, got.Cart.Lines()[0].Quantity)
	assert.True(t, got.Cart.Total().Equal(s.Cart.Total()))
	assert.True(t, got.CreatedAt.Equal(s.CreatedAt))
}

func TestRedisStore_SetsTTLWithJitter(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Save(context.Background(), sessionWithCart(t, "s-1")))

	ttl := mr.TTL(sessionKey("s-1"))
	assert.GreaterOrEqual(t, ttl, 30*time.Minute)
	assert.Less(t, ttl, 31*time.Minute)
}

func TestRedisStore_Expired(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sessionWithCart(t, "s-1")))

	mr.FastForward(32 * time.Minute)

	_, err := store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	got, err := store.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, got)
}

func TestRedisStore_GetInvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(sessionKey("s-1"), "{not json"))

	got, err := store.Get(context.Background(), "s-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal session failed")
	assert.Nil(t, got)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sessionWithCart(t, "s-1")))

	require.NoError(t, store.Delete(ctx, "s-1"))

	assert.False(t, mr.Exists(sessionKey("s-1")))
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "s-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	err = store.Save(context.Background(), sessionWithCart(t, "s-1"))
	assert.Error(t, err)
}
