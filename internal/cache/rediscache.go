package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// RedisCache is the C13 distributed cache tier: it implements the same
// OHLCVCache contract as TTLCache so a multi-process deployment can share
// one cache across scanner instances. Keying and TTL semantics are
// identical to the in-memory tier (testable property #3 applies equally).
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string

	hits   int64
	misses int64
}

// NewRedisCache wraps an existing redis client. Callers own the client's
// lifecycle (Close).
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "ohlcv:"}
}

func (r *RedisCache) Get(key Key) ([]adapter.Candle, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := r.client.Get(ctx, r.prefix+key.String()).Bytes()
	if err != nil {
		atomic.AddInt64(&r.misses, 1)
		return nil, false
	}
	var candles []adapter.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		atomic.AddInt64(&r.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&r.hits, 1)
	return candles, true
}

func (r *RedisCache) Set(key Key, candles []adapter.Candle) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := json.Marshal(candles)
	if err != nil {
		return
	}
	r.client.Set(ctx, r.prefix+key.String(), raw, r.ttl)
}

func (r *RedisCache) Stats() Stats {
	hits := atomic.LoadInt64(&r.hits)
	misses := atomic.LoadInt64(&r.misses)
	return Stats{Hits: hits, Misses: misses}
}
