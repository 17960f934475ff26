package ratelimit

import (
	"context"
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// RetryConfig controls the single-fetch retry policy from spec §4.3.
type RetryConfig struct {
	Attempts int           // default 3
	Delay    time.Duration // base backoff unit
}

// DefaultRetryConfig matches spec defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Delay: 200 * time.Millisecond}
}

// Retry runs fn up to cfg.Attempts times, backing off cfg.Delay*(attempt+1)
// between attempts. Retries only on Timeout/Transient errors; RateLimited,
// SymbolUnknown/MarketInactive, Fatal, and DataInsufficient are returned
// immediately (spec §7: only Timeout/Transient are "retried per policy").
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		kind := adapter.KindOf(lastErr)
		if kind != adapter.KindTimeout && kind != adapter.KindTransient {
			return lastErr
		}
		if attempt == cfg.Attempts-1 {
			break
		}
		wait := time.Duration(attempt+1) * cfg.Delay
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
