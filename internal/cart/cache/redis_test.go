package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func testCart(owner string) *domain.Cart {
	return &domain.Cart{
		OwnerID: owner,
		Items: []domain.CartItem{
			{Key: "9-R-0", Title: "Poster", Amount: 2500, Quantity: 2, Target: "9", Project: "42", Currency: "EUR"},
			{Key: "9-O-1", Title: "Free donation", Amount: 1000, Quantity: 1, Target: "9", Project: "42", Currency: "EUR"},
		},
		NextSeq: 2,
	}
}

func TestGet_Success(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	data, err := json.Marshal(testCart("u1"))
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey("u1"), string(data)))

	cart, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", cart.OwnerID)
	assert.Len(t, cart.Items, 2)
}

func TestGet_CacheMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	cart, err := c.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, cart)
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("u1"), "{not json"))

	cart, err := c.Get(context.Background(), "u1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, cart)
}

func TestSetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	want := testCart("u1")

	require.NoError(t, c.Set(ctx, "u1", want))
	assert.True(t, mr.Exists(cacheKey("u1")))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want.Items, got.Items)
	assert.Equal(t, want.NextSeq, got.NextSeq)
}

func TestSet_HasTTL(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "u1", testCart("u1")))

	ttl := mr.TTL(cacheKey("u1"))
	assert.Greater(t, ttl.Minutes(), 14.0)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", testCart("u1")))
	require.NoError(t, c.Delete(ctx, "u1"))

	assert.False(t, mr.Exists(cacheKey("u1")))

	// Deleting an absent key is not an error.
	assert.NoError(t, c.Delete(ctx, "u1"))
}
