package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/storefront/internal/domain"
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

func (r RedisCache) Product(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	if err := r.get(ctx, productKey(slug), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r RedisCache) SetProduct(ctx context.Context, product *domain.Product) error {
	return r.set(ctx, productKey(product.Slug), product)
}

func (r RedisCache) Collection(ctx context.Context, slug string) (*domain.Collection, error) {
	var c domain.Collection
	if err := r.get(ctx, collectionKey(slug), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r RedisCache) SetCollection(ctx context.Context, collection *domain.Collection) error {
	return r.set(ctx, collectionKey(collection.Slug), collection)
}

func (r RedisCache) get(ctx context.Context, key string, out any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r RedisCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func productKey(slug string) string {
	return fmt.Sprintf("catalog:product:%s", slug)
}

func collectionKey(slug string) string {
	return fmt.Sprintf("catalog:collection:%s", slug)
}
