package basket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, buyerID string) (*Basket, error) {
	key := cacheKey(buyerID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var b Basket
	if err2 := json.Unmarshal(data, &b); err2 != nil {
		return nil, fmt.Errorf("unmarshal basket failed: %w", err2)
	}

	return &b, nil
}

func (r *RedisCache) Set(ctx context.Context, buyerID string, b *Basket) error {
	key := cacheKey(buyerID)
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal basket failed: %w", err)
	}

	// Jitter spreads expirations so a burst of baskets does not expire at once.
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if ret := r.client.Set(ctx, key, data, ttl); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, buyerID string) error {
	if err := r.client.Del(ctx, cacheKey(buyerID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(buyerID string) string {
	return fmt.Sprintf("basket:%s", buyerID)
}
