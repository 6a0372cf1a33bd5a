package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, maxKeys int) Cache {
	t.Helper()
	c := NewMemoryCache(&Config{
		MaxKeys:         maxKeys,
		CleanupInterval: time.Minute,
	}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	got, found := c.Get(ctx, "k")
	require.True(t, found)
	assert.Equal(t, "v", got)

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
	assert.False(t, c.Exists(ctx, "k"))
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, c.Exists(ctx, "k"))

	// Deleting an absent key is a no-op
	require.NoError(t, c.Delete(ctx, "k"))
}

func TestGetDeleteIsSingleUse(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	require.NoError(t, c.Set(ctx, "state", int64(42), time.Minute))

	got, found := c.GetDelete(ctx, "state")
	require.True(t, found)
	assert.Equal(t, int64(42), got)

	_, found = c.GetDelete(ctx, "state")
	assert.False(t, found)
}

func TestGetDeleteExpired(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	require.NoError(t, c.Set(ctx, "state", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, found := c.GetDelete(ctx, "state")
	assert.False(t, found)
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	n, err := c.Increment(ctx, "counter", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "counter", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Increment(ctx, "counter", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestIncrementResetsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	_, err := c.Increment(ctx, "counter", 3, 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(25 * time.Millisecond)

	n, err := c.Increment(ctx, "counter", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIncrementNonNumeric(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 100)

	require.NoError(t, c.Set(ctx, "k", "not a number", time.Minute))
	_, err := c.Increment(ctx, "k", 1, time.Minute)
	assert.Error(t, err)
}

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), i, time.Minute))
		time.Sleep(2 * time.Millisecond) // distinct access times
	}

	// Touch k0 so k1 becomes the least recently used
	_, found := c.Get(ctx, "k0")
	require.True(t, found)

	require.NoError(t, c.Set(ctx, "k3", 3, time.Minute))

	assert.True(t, c.Exists(ctx, "k0"))
	assert.False(t, c.Exists(ctx, "k1"))
	assert.True(t, c.Exists(ctx, "k2"))
	assert.True(t, c.Exists(ctx, "k3"))
}

func TestHealth(t *testing.T) {
	c := newTestCache(t, 100)
	assert.NoError(t, c.Health(context.Background()))
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(DefaultConfig(), zap.NewNop())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestNewCacheProviderSelection(t *testing.T) {
	logger := zap.NewNop()

	c, err := NewCache(&Config{Provider: "memory", MaxKeys: 10, CleanupInterval: time.Minute}, logger)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = NewCache(&Config{Provider: "memcached"}, logger)
	assert.Error(t, err)
}
