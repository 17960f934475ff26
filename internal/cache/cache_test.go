package cache

import (
	"testing"
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

func sampleCandles() []adapter.Candle {
	now := time.Now()
	return []adapter.Candle{
		{Timestamp: now, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: now.Add(time.Hour), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
	}
}

func TestTTLCacheHitWithinTTL(t *testing.T) {
	c := NewTTLCache(100*time.Millisecond, 10)
	key := Key{Exchange: "ex", Pair: "BTC/USDT", Timeframe: adapter.TF1h, Limit: 100}

	candles := sampleCandles()
	c.Set(key, candles)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != len(candles) {
		t.Fatalf("expected %d candles, got %d", len(candles), len(got))
	}
	for i := range candles {
		if got[i] != candles[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], candles[i])
		}
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache(20*time.Millisecond, 10)
	key := Key{Exchange: "ex", Pair: "BTC/USDT", Timeframe: adapter.TF1h, Limit: 100}
	c.Set(key, sampleCandles())

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected cache miss after ttl elapsed")
	}
}

func TestTTLCacheLRUEviction(t *testing.T) {
	c := NewTTLCache(time.Minute, 2)
	k1 := Key{Exchange: "ex", Pair: "A", Timeframe: adapter.TF1h, Limit: 10}
	k2 := Key{Exchange: "ex", Pair: "B", Timeframe: adapter.TF1h, Limit: 10}
	k3 := Key{Exchange: "ex", Pair: "C", Timeframe: adapter.TF1h, Limit: 10}

	c.Set(k1, sampleCandles())
	c.Set(k2, sampleCandles())
	// Touch k1 so k2 becomes the least-recently-accessed entry.
	c.Get(k1)
	c.Set(k3, sampleCandles())

	if _, ok := c.Get(k2); ok {
		t.Fatal("expected k2 to have been evicted as least-recently-used")
	}
	if _, ok := c.Get(k1); !ok {
		t.Fatal("expected k1 to survive eviction")
	}
	if _, ok := c.Get(k3); !ok {
		t.Fatal("expected k3 to survive eviction")
	}
}

func TestTTLCacheReturnsIndependentCopies(t *testing.T) {
	c := NewTTLCache(time.Minute, 10)
	key := Key{Exchange: "ex", Pair: "BTC/USDT", Timeframe: adapter.TF1h, Limit: 10}
	c.Set(key, sampleCandles())

	got, _ := c.Get(key)
	got[0].Close = 999

	got2, _ := c.Get(key)
	if got2[0].Close == 999 {
		t.Fatal("mutating a returned slice corrupted the cached entry")
	}
}
