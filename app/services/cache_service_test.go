package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func exerciseCache(t *testing.T, cache ICacheService, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "https://psgc/regions")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "https://psgc/regions", []byte(`[{"code":"1"}]`)))

	entry, found, err := cache.Get(ctx, "https://psgc/regions")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `[{"code":"1"}]`, string(entry.Payload))
	assert.True(t, cache.IsFresh(entry))

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.True(t, cache.IsFresh(entry))

	clock.Advance(time.Second)
	assert.False(t, cache.IsFresh(entry), "hết hạn đúng tại TTL")

	// Entry cũ vẫn trả về để caller quyết định
	entry, found, err = cache.Get(ctx, "https://psgc/regions")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, cache.IsFresh(entry))

	require.NoError(t, cache.Delete(ctx, "https://psgc/regions"))
	_, found, err = cache.Get(ctx, "https://psgc/regions")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "a", []byte("1")))
	require.NoError(t, cache.Set(ctx, "b", []byte("2")))
	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalItems)
	assert.EqualValues(t, 300, stats.TTLSeconds)
	assert.EqualValues(t, 2, stats.TotalHits)
	assert.EqualValues(t, 2, stats.TotalMiss)

	require.NoError(t, cache.Clear(ctx))
	stats, err = cache.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalItems)

	require.NoError(t, cache.Close())
}

func TestCacheService(t *testing.T) {
	clock := newFakeClock()
	exerciseCache(t, NewCacheService(CacheOptions{Clock: clock}), clock)
}

func TestCacheService_CleanupExpired(t *testing.T) {
	clock := newFakeClock()
	cache := NewCacheService(CacheOptions{TTL: time.Minute, Clock: clock})
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "old", []byte("1")))
	clock.Advance(2 * time.Minute)
	require.NoError(t, cache.Set(ctx, "new", []byte("2")))

	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestCacheService_PayloadIsCopied(t *testing.T) {
	cache := NewCacheService(CacheOptions{})
	ctx := context.Background()

	payload := []byte("abc")
	require.NoError(t, cache.Set(ctx, "k", payload))
	payload[0] = 'x'

	entry, _, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	entry.Payload[1] = 'y'

	again, _, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Payload))
}

func TestLRUCacheService(t *testing.T) {
	clock := newFakeClock()
	cache, err := NewLRUCacheService(16, CacheOptions{Clock: clock})
	require.NoError(t, err)
	exerciseCache(t, cache, clock)
}

func TestLRUCacheService_Evicts(t *testing.T) {
	cache, err := NewLRUCacheService(2, CacheOptions{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", []byte("1")))
	require.NoError(t, cache.Set(ctx, "b", []byte("2")))
	require.NoError(t, cache.Set(ctx, "c", []byte("3")))

	_, found, _ := cache.Get(ctx, "a")
	assert.False(t, found)
	_, found, _ = cache.Get(ctx, "c")
	assert.True(t, found)
}

func TestRedisCacheService(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()

	cache, err := NewRedisCacheService("redis://"+mr.Addr(), CacheOptions{Clock: clock}, zap.NewNop())
	require.NoError(t, err)
	exerciseCache(t, cache, clock)
}

func TestRedisCacheService_KeyExpiry(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewRedisCacheService("redis://"+mr.Addr(), CacheOptions{TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set(context.Background(), "k", []byte("1")))
	assert.Equal(t, 2*time.Minute, mr.TTL("psgc:k"))

	mr.FastForward(3 * time.Minute)
	_, found, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedisCacheService_BadURL(t *testing.T) {
	_, err := NewRedisCacheService("://nope", CacheOptions{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewCacheFromConfig(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	cache, cleanup, err := NewCacheFromConfig(ctx, CacheConfig{Driver: "memory"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &CacheService{}, cache)
	cleanup()

	cache, cleanup, err = NewCacheFromConfig(ctx, CacheConfig{Driver: "LRU", L1Size: 8}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LRUCacheService{}, cache)
	cleanup()

	mr := miniredis.RunT(t)
	cache, cleanup, err = NewCacheFromConfig(ctx, CacheConfig{Driver: "redis", RedisURL: "redis://" + mr.Addr()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &RedisCacheService{}, cache)
	cleanup()

	_, _, err = NewCacheFromConfig(ctx, CacheConfig{Driver: "memcached"}, logger)
	assert.Error(t, err)
}
