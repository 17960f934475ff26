package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// BreakerConfig configures the C3 circuit breaker: only consecutive
// RateLimited errors count toward tripping (non-rate-limit errors are
// treated as "successful" from the breaker's point of view, per spec
// §4.3's "non-rate-limit errors reset the counter" -- resetting and never
// incrementing both guarantee the breaker never trips on them).
type BreakerConfig struct {
	Threshold int           // consecutive rate-limit errors to trip (default 10)
	Pause     time.Duration // open-state duration before half-open retry (default 60s)
}

// DefaultBreakerConfig matches spec §4.3 defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 10, Pause: 60 * time.Second}
}

// Breaker wraps a sony/gobreaker.CircuitBreaker with the rate-limit-aware
// trip policy spec'd in §4.3.
type Breaker struct {
	cb       *gobreaker.CircuitBreaker
	provider string
}

// NewBreaker builds a per-adapter circuit breaker.
func NewBreaker(provider string, cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:    provider,
		Timeout: cfg.Pause,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.Threshold)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Only rate-limit errors count as breaker failures; every
			// other kind (including Timeout/Transient, which are handled
			// by the retry policy instead) is "successful" here so it
			// resets the consecutive-failure streak without tripping.
			return adapter.KindOf(err) != adapter.KindRateLimited
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), provider: provider}
}

// Call executes fn through the breaker. If the breaker is open, fn is never
// invoked and gobreaker.ErrOpenState is returned (classified by callers as
// a deferral, not a fetch failure).
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

// State returns the breaker's current state for observability.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Manager owns one Breaker and one Gate per adapter provider name.
type Manager struct {
	breakerCfg BreakerConfig
	gateMax    int
	gateDelay  time.Duration

	mu       sync.Mutex
	breakers map[string]*Breaker
	gates    map[string]*Gate
}

// NewManager builds a rate-limit/circuit-breaker manager. gateMax<=0 uses
// MaxConcurrentRequests(); gateDelay defaults to 10ms per spec §4.3.
func NewManager(breakerCfg BreakerConfig, gateMax int, gateDelay time.Duration) *Manager {
	if gateDelay <= 0 {
		gateDelay = 10 * time.Millisecond
	}
	return &Manager{
		breakerCfg: breakerCfg,
		gateMax:    gateMax,
		gateDelay:  gateDelay,
		breakers:   make(map[string]*Breaker),
		gates:      make(map[string]*Gate),
	}
}

func (m *Manager) forProvider(provider string) (*Breaker, *Gate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[provider]
	if !ok {
		b = NewBreaker(provider, m.breakerCfg)
		m.breakers[provider] = b
	}
	g, ok := m.gates[provider]
	if !ok {
		g = NewGate(m.gateMax, m.gateDelay)
		m.gates[provider] = g
	}
	return b, g
}

// Guard acquires the provider's concurrency slot, runs fn through its
// circuit breaker, and always releases the slot afterward.
func (m *Manager) Guard(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	breaker, gate := m.forProvider(provider)
	if err := gate.Acquire(ctx); err != nil {
		return err
	}
	defer gate.Release()
	return breaker.Call(ctx, fn)
}

// BreakerState exposes a provider's breaker state for metrics/status.
func (m *Manager) BreakerState(provider string) (gobreaker.State, bool) {
	m.mu.Lock()
	b, ok := m.breakers[provider]
	m.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed, false
	}
	return b.State(), true
}
