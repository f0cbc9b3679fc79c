package basket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func TestRedisCache_Get_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	b := &Basket{
		BuyerID: "buyer-1",
		Items: []BasketItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, _ := json.Marshal(b)
	mr.Set(cacheKey("buyer-1"), string(data))

	result, err := cache.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", result.BuyerID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(1), result.Items[0].ProductID)
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestRedisCache_Get_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	mr.Set(cacheKey("buyer-1"), "{not json")

	_, err := cache.Get(context.Background(), "buyer-1")
	assert.Error(t, err)
}

func TestRedisCache_SetAndDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	b := &Basket{BuyerID: "buyer-1", Items: []BasketItem{{ProductID: 7, Quantity: 1}}}
	require.NoError(t, cache.Set(ctx, "buyer-1", b))

	assert.True(t, mr.Exists(cacheKey("buyer-1")))

	got, err := cache.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Items[0].ProductID)

	require.NoError(t, cache.Delete(ctx, "buyer-1"))
	assert.False(t, mr.Exists(cacheKey("buyer-1")))
}
