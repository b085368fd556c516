package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseTTL = 15 * time.Minute
	maxJitter      = 5
)

type RedisCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: defaultBaseTTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

// Set stores the cart with the base TTL plus up to maxJitter minutes so entries written
// together do not expire together.
func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Intn(maxJitter))*time.Minute
	if err := r.client.Set(ctx, cacheKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
