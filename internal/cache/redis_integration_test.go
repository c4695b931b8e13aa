package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fjod/storefront/internal/domain"
)

func setupRedis(t *testing.T) *RedisCache {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()
	redisC, err := testcontainers.Run(
		ctx, "redis:7",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
	testcontainers.CleanupContainer(t, redisC)
	require.NoError(t, err)

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache := setupRedis(t)
	ctx := context.Background()

	_, err := cache.Collection(ctx, "mugs")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.SetCollection(ctx, &domain.Collection{ID: "col-mugs", Slug: "mugs", Name: "Mugs"}))
	got, err := cache.Collection(ctx, "mugs")
	require.NoError(t, err)
	assert.Equal(t, "col-mugs", got.ID)

	require.NoError(t, cache.SetProduct(ctx, &domain.Product{ID: "prod-mug", Slug: "mug"}))
	p, err := cache.Product(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, "prod-mug", p.ID)
}
