package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "forcegraph:layout:1", []byte("payload"), 0))
	data, hit, err := c.Get(ctx, "forcegraph:layout:1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", string(data))
	assert.True(t, srv.Exists("forcegraph:layout:1"))

	require.NoError(t, c.Delete(ctx, "forcegraph:layout:1"))
	_, hit, err = c.Get(ctx, "forcegraph:layout:1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Delete(ctx, "forcegraph:layout:1"))
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, srv.TTL("k"))

	srv.FastForward(2 * time.Minute)
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheServerErrorNotRetried(t *testing.T) {
	withFastRetry(t)
	ctx := context.Background()
	c, srv := newTestRedis(t)

	srv.SetError("ERR simulated failure")
	defer srv.SetError("")

	_, _, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestRedisCacheUnavailable(t *testing.T) {
	withFastRetry(t)
	ctx := context.Background()
	c, srv := newTestRedis(t)

	srv.Close()
	_, _, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRedisCachePingFails(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, DialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
