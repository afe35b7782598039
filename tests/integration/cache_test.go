//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/smartshelf/catalog-service/internal/cache"
)

// startRedis runs a throwaway Redis container and returns its URL.
func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return "redis://" + host + ":" + port.Port()
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := cache.Connect(ctx, startRedis(t))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "catalog:test", []byte(`{"asin":"A1"}`), time.Minute))

	got, ok, err := store.Get(ctx, "catalog:test")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"asin":"A1"}`, string(got))
}

func TestRedisCache_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := cache.Connect(ctx, startRedis(t))
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "catalog:absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "catalog:ttl", []byte("v"), time.Second))
	time.Sleep(1500 * time.Millisecond)

	_, ok, err = store.Get(ctx, "catalog:ttl")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must read as a miss")
}
