package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

func TestBreakerTripsAfterConsecutiveRateLimits(t *testing.T) {
	cfg := BreakerConfig{Threshold: 10, Pause: 50 * time.Millisecond}
	b := NewBreaker("testex", cfg)

	rateLimitErr := adapter.NewError(adapter.KindRateLimited, "testex", "BTC/USDT", errors.New("rate limit"))

	for i := 0; i < 10; i++ {
		err := b.Call(context.Background(), func(ctx context.Context) error { return rateLimitErr })
		if err == nil {
			t.Fatalf("attempt %d: expected rate-limit error, got nil", i)
		}
	}

	// Circuit should now be open: the next call must not invoke fn.
	called := false
	err := b.Call(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatalf("expected breaker-open error after %d consecutive rate limits", cfg.Threshold)
	}
	if called {
		t.Fatal("breaker allowed a call through while open")
	}

	time.Sleep(cfg.Pause + 20*time.Millisecond)

	succeeded := false
	_ = b.Call(context.Background(), func(ctx context.Context) error {
		succeeded = true
		return nil
	})
	if !succeeded {
		t.Fatal("expected breaker to allow a half-open probe after pause elapsed")
	}
}

func TestBreakerNonRateLimitDoesNotTrip(t *testing.T) {
	cfg := BreakerConfig{Threshold: 3, Pause: time.Second}
	b := NewBreaker("testex2", cfg)

	transientErr := adapter.NewError(adapter.KindTransient, "testex2", "ETH/USDT", errors.New("connection reset"))

	for i := 0; i < 20; i++ {
		_ = b.Call(context.Background(), func(ctx context.Context) error { return transientErr })
	}

	called := false
	_ = b.Call(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if !called {
		t.Fatal("breaker tripped on non-rate-limit errors; it should not")
	}
}

func TestManagerGuardSerializesConcurrency(t *testing.T) {
	m := NewManager(DefaultBreakerConfig(), 2, 0)

	inFlight := 0
	maxInFlight := 0
	var mu sync.Mutex

	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_ = m.Guard(context.Background(), "p", func(ctx context.Context) error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	if maxInFlight > 2 {
		t.Fatalf("expected at most 2 concurrent in-flight calls, observed %d", maxInFlight)
	}
}
