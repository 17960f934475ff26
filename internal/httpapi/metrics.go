// Package httpapi implements the control API surface (C9) plus the
// Prometheus metrics registry (C12), grounded on the teacher's
// internal/interfaces/http/server.go and metrics.go.
package httpapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"
)

// Metrics holds every Prometheus collector the scanner exposes at
// GET /metrics, per spec §4.12.
type Metrics struct {
	ScanDuration       *prometheus.HistogramVec
	CacheHitRatio      prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
	RateLimitThrottled *prometheus.CounterVec
	SignalsEmitted     *prometheus.CounterVec
	ActiveScans        prometheus.Gauge
}

// NewMetrics builds and registers the scanner's metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid polluting the global default
// registry; pass prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanner_scan_duration_seconds",
				Help:    "Duration of a single-exchange scan in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"exchange", "result"},
		),
		CacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_cache_hit_ratio",
			Help: "Current OHLCV cache hit ratio (0.0 to 1.0)",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scanner_circuit_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		RateLimitThrottled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_rate_limit_throttled_total",
				Help: "Total requests that waited on the rate-limit gate, by provider",
			},
			[]string{"provider"},
		),
		SignalsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_signals_emitted_total",
				Help: "Total signals emitted, by exchange and wire signal (BUY/SELL/HOLD)",
			},
			[]string{"exchange", "signal"},
		),
		ActiveScans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_active_scans",
			Help: "Number of scans currently executing",
		}),
	}

	reg.MustRegister(m.ScanDuration, m.CacheHitRatio, m.CircuitBreakerState,
		m.RateLimitThrottled, m.SignalsEmitted, m.ActiveScans)
	return m
}

// ObserveScan records one scan's duration and result.
func (m *Metrics) ObserveScan(exchange, result string, d time.Duration) {
	m.ScanDuration.WithLabelValues(exchange, result).Observe(d.Seconds())
}

// SetCacheHitRatio updates the cache-hit-ratio gauge from raw hit/miss
// counts.
func (m *Metrics) SetCacheHitRatio(hits, misses int64) {
	total := hits + misses
	if total == 0 {
		return
	}
	m.CacheHitRatio.Set(float64(hits) / float64(total))
}

// breakerGaugeValue maps a ratelimit.BreakerState's textual name to the
// numeric convention documented on CircuitBreakerState.
func breakerGaugeValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// SetCircuitBreakerState records provider's current breaker state.
func (m *Metrics) SetCircuitBreakerState(provider, state string) {
	m.CircuitBreakerState.WithLabelValues(provider).Set(breakerGaugeValue(state))
}

// IncRateLimitThrottled records one request that waited on provider's gate.
func (m *Metrics) IncRateLimitThrottled(provider string) {
	m.RateLimitThrottled.WithLabelValues(provider).Inc()
}

// IncSignalsEmitted records one emitted signal.
func (m *Metrics) IncSignalsEmitted(exchange, wireSignal string) {
	m.SignalsEmitted.WithLabelValues(exchange, wireSignal).Inc()
}

// Handler returns the Prometheus exposition-format HTTP handler, per spec
// §6 "GET /metrics" and testable property 12 (never panics, correct
// content-type, even before any scan has run).
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
