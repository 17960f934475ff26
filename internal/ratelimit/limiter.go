// Package ratelimit implements the bounded-concurrency gate and circuit
// breaker described in spec §4.3 (C3), adapted from the teacher's
// internal/net/ratelimit and internal/net/circuit packages.
package ratelimit

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/time/rate"
)

// MaxConcurrentRequests derives the per-adapter concurrency cap from CPU
// count, clamped to [20, 100] per spec §4.3.
func MaxConcurrentRequests() int {
	n := runtime.NumCPU() * 5
	if n < 20 {
		n = 20
	}
	if n > 100 {
		n = 100
	}
	return n
}

// Gate bounds concurrent in-flight fetches for one adapter and enforces the
// minimum delay between successful fetches via a token-bucket limiter (one
// token per `delay`, burst 1), matching the teacher's per-host
// golang.org/x/time/rate token buckets in internal/net/ratelimit/limiter.go.
type Gate struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewGate builds a concurrency gate with the given max-in-flight and
// inter-request delay (default max=MaxConcurrentRequests(), delay=10ms).
func NewGate(maxConcurrent int, delay time.Duration) *Gate {
	if maxConcurrent <= 0 {
		maxConcurrent = MaxConcurrentRequests()
	}
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	return &Gate{
		sem:     make(chan struct{}, maxConcurrent),
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Acquire blocks until a concurrency slot is free and the rate limiter
// admits the next request, or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		<-g.sem
		return err
	}
	return nil
}

// Release frees the concurrency slot.
func (g *Gate) Release() {
	<-g.sem
}
