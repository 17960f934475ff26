package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) *RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl)
}

func TestRedisCacheBitIdenticalWithinTTL(t *testing.T) {
	c := newTestRedisCache(t, time.Minute)
	key := Key{Exchange: "ex", Pair: "BTC/USDT", Timeframe: adapter.TF1h, Limit: 100}
	candles := sampleCandles()

	c.Set(key, candles)

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, candles, got)
}

func TestRedisCacheMissAfterTTLExpires(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewRedisCache(client, time.Second)
	key := Key{Exchange: "ex", Pair: "BTC/USDT", Timeframe: adapter.TF1h, Limit: 100}
	c.Set(key, sampleCandles())

	mr.FastForward(2 * time.Second)

	_, ok := c.Get(key)
	require.False(t, ok)
}

func TestRedisCacheMissCountsTowardStats(t *testing.T) {
	c := newTestRedisCache(t, time.Minute)
	key := Key{Exchange: "ex", Pair: "NOPE/USDT", Timeframe: adapter.TF1h, Limit: 100}

	_, ok := c.Get(key)
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().Misses)

	c.Set(key, sampleCandles())
	_, ok = c.Get(key)
	require.True(t, ok)
	require.Equal(t, int64(1), c.Stats().Hits)
}
