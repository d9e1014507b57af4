package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mpetrov/cartkeeper/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_Load_NotFound(t *testing.T) {
	store, _ := setupTestRedis(t)

	cart, err := store.Load(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	cart := domain.Cart{
		{ProductID: "p1", Name: "keyboard", Price: 49.99, Quantity: 2, Stock: 5, Image: "kb.png", VendorID: "v1"},
	}
	require.NoError(t, store.Save(ctx, "u42", cart))

	// Stored under the partition key with no expiry.
	stored, err := mr.Get(Key("u42"))
	require.NoError(t, err)
	assert.NotEmpty(t, stored)
	assert.Zero(t, mr.TTL(Key("u42")))

	got, err := store.Load(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, cart, got)
}

func TestRedisStore_Load_InvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)

	cart := domain.Cart{{ProductID: "p1", Quantity: 2, Stock: 5}}
	data, err := json.Marshal(cart)
	require.NoError(t, err)
	require.NoError(t, mr.Set(Key("u42"), string(data[:10])))

	_, loadErr := store.Load(context.Background(), "u42")
	require.ErrorContains(t, loadErr, "unmarshal cart failed")
}

func TestRedisStore_PersistedLayout(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	cart := domain.Cart{{ProductID: "p1", Name: "keyboard", Price: 10, Quantity: 2, Stock: 5}}
	require.NoError(t, store.Save(ctx, "guest", cart))

	stored, err := mr.Get("cart_guest")
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "p1", raw[0]["productId"])
	assert.Equal(t, float64(2), raw[0]["quantity"])
	assert.Equal(t, float64(5), raw[0]["stock"])
}

func TestKey_Format(t *testing.T) {
	assert.Equal(t, "cart_u42", Key("u42"))
	assert.Equal(t, "cart_guest", Key("guest"))
}
