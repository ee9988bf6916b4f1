package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"billdesk/m/domain"
)

const keyPrefix = "billing:search"

// RedisCache versions its keys with a generation counter so Invalidate is a
// single INCR; stale generations simply expire.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, query string) ([]domain.Product, error) {
	key, err := r.key(ctx, query)
	if err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal search result failed: %w", err)
	}
	return products, nil
}

func (r *RedisCache) Set(ctx context.Context, query string, products []domain.Product) error {
	key, err := r.key(ctx, query)
	if err != nil {
		return err
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal search result failed: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, generationKey()).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

func (r *RedisCache) key(ctx context.Context, query string) (string, error) {
	gen, err := r.client.Get(ctx, generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis get generation failed: %w", err)
	}
	return fmt.Sprintf("%s:%d:%s", keyPrefix, gen, strings.ToLower(strings.TrimSpace(query))), nil
}

func generationKey() string {
	return keyPrefix + ":gen"
}
