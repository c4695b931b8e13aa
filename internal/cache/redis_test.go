package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestProduct_Hit(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	product := &domain.Product{ID: "p-1", Slug: "shirt", Name: "Shirt", Price: decimal.RequireFromString("19.99"), Visible: true}
	data, _ := json.Marshal(product)
	require.NoError(t, mr.Set(productKey("shirt"), string(data)))

	got, err := cache.Product(ctx, "shirt")
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ID)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
}

func TestProduct_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Product(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestProduct_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(productKey("broken"), `{"id":`))

	_, err := cache.Product(context.Background(), "broken")
	require.ErrorContains(t, err, "unmarshal catalog:product:broken failed")
}

func TestSetProduct_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	err := cache.SetProduct(context.Background(), &domain.Product{ID: "p-2", Slug: "hat"})
	require.NoError(t, err)

	assert.True(t, mr.Exists(productKey("hat")))
	ttl := mr.TTL(productKey("hat"))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestCollection_RoundTrip(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetCollection(ctx, &domain.Collection{ID: "c-1", Slug: "summer", Name: "Summer"}))
	got, err := cache.Collection(ctx, "summer")
	require.NoError(t, err)
	assert.Equal(t, "Summer", got.Name)
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "catalog:product:shirt", productKey("shirt"))
	assert.Equal(t, "catalog:collection:summer", collectionKey("summer"))
}
