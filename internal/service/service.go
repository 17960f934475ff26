// Package service assembles the C1-C15 components behind one explicit
// value with a single Start/Stop lifecycle, replacing the Python
// original's module-level globals per spec §9's "Global mutable state"
// design note. Grounded on the teacher's cmd/cryptorun/main.go
// application-wiring shape (construct adapters, metrics, HTTP server,
// hand off to cobra commands).
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/cache"
	"github.com/sawpanic/marketscanner/internal/config"
	"github.com/sawpanic/marketscanner/internal/continuous"
	"github.com/sawpanic/marketscanner/internal/httpapi"
	"github.com/sawpanic/marketscanner/internal/ratelimit"
	"github.com/sawpanic/marketscanner/internal/scan"
	"github.com/sawpanic/marketscanner/internal/store"
	"github.com/sawpanic/marketscanner/internal/store/postgres"
)

// Scanner bundles every wired component a running scanner process needs:
// one exchange adapter (and scan.Orchestrator) per configured exchange,
// a shared OHLCV cache tier, the continuous pipeline, the day-file store,
// and the Prometheus metrics registry. A Scanner is built once at process
// startup and handed to the HTTP server and CLI commands.
type Scanner struct {
	Config ScannerDeps

	Exchanges     map[string]adapter.Exchange
	Orchestrators map[string]*scan.Orchestrator
	Cache         cache.OHLCVCache
	Limiter       *ratelimit.Manager
	Store         *store.DayFileStore
	Pipeline      *continuous.Pipeline
	Broadcast     *continuous.Broadcaster
	Metrics       *httpapi.Metrics
	Registry      *prometheus.Registry
	auditDB       *sqlx.DB
}

// ScannerDeps lets callers substitute exchange constructors (tests inject
// adapter.NewMockExchange; a real deployment would inject REST-backed
// adapters satisfying the same adapter.Exchange interface).
type ScannerDeps struct {
	Cfg             config.ScannerConfig
	BuildExchange   func(cfg config.ExchangeConfig) (adapter.Exchange, error)
	DefaultSymbols  []adapter.Symbol
	PrimaryExchange string
}

// New wires every component per cfg, per spec §4.10's component design:
// one cache tier (in-memory or Redis, selected by cfg.Cache.RedisAddr),
// one rate-limit Manager, one Orchestrator per configured exchange, the
// day-file store, and (unstarted) continuous pipeline.
func New(deps ScannerDeps) (*Scanner, error) {
	if deps.BuildExchange == nil {
		return nil, fmt.Errorf("service: BuildExchange constructor is required")
	}

	reg := prometheus.NewRegistry()
	metrics := httpapi.NewMetrics(reg)

	var ohlcvCache cache.OHLCVCache
	if deps.Cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: deps.Cfg.Cache.RedisAddr})
		ohlcvCache = cache.NewRedisCache(client, deps.Cfg.CacheTTL())
	} else {
		ohlcvCache = cache.NewTTLCache(deps.Cfg.CacheTTL(), deps.Cfg.Cache.MaxEntries)
	}

	limiter := ratelimit.NewManager(
		ratelimit.BreakerConfig{Threshold: deps.Cfg.RateLimit.BreakerThreshold, Pause: deps.Cfg.BreakerPause()},
		deps.Cfg.RateLimit.MaxConcurrentPerHost,
		deps.Cfg.RateLimitDelay(),
	)

	exchanges := make(map[string]adapter.Exchange)
	orchestrators := make(map[string]*scan.Orchestrator)
	for _, ecfg := range deps.Cfg.Exchanges {
		if !ecfg.Enabled {
			continue
		}
		ex, err := deps.BuildExchange(ecfg)
		if err != nil {
			log.Error().Err(err).Str("exchange", ecfg.Name).Msg("exchange construction failed")
			continue
		}
		exchanges[ecfg.Name] = ex

		o := scan.NewOrchestrator(ex, ohlcvCache, limiter)
		o.Config = scan.Config{MaxSymbols: deps.Cfg.Scan.MaxSymbols, TopN: deps.Cfg.Scan.TopN, CandleLimit: deps.Cfg.Scan.CandleLimit}
		o.Retry = ratelimit.RetryConfig{Attempts: deps.Cfg.RateLimit.RetryAttempts, Delay: ratelimit.DefaultRetryConfig().Delay}
		orchestrators[ecfg.Name] = o
	}
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("service: no adapter could be constructed")
	}

	dayStore, err := store.NewDayFileStore(deps.Cfg.Store.TrainingDataRoot)
	if err != nil {
		return nil, fmt.Errorf("service: persistence store: %w", err)
	}

	primary := deps.PrimaryExchange
	if primary == "" {
		for name := range exchanges {
			primary = name
			break
		}
	}

	broadcast := continuous.NewBroadcaster()

	pipelineCfg := continuous.Config{
		TickPeriod:        durationSeconds(deps.Cfg.Continuous.TickPeriodSeconds),
		SignalPeriod:      durationSeconds(deps.Cfg.Continuous.SignalPeriodSeconds),
		MarketStatePeriod: durationSeconds(deps.Cfg.Continuous.MarketStatePeriodSeconds),
		FullScanPeriod:    durationSeconds(deps.Cfg.Continuous.FullScanPeriodSeconds),
		TickCapacity:      continuous.DefaultTickCapacity,
		CandleCapacity:    continuous.DefaultCandleCapacity,
		SignalCapacity:    continuous.DefaultSignalCapacity,
		ScanRequest:       scan.DefaultRequest(),
	}
	pipeline := continuous.NewPipeline(exchanges, orchestrators, deps.DefaultSymbols, primary, pipelineCfg)
	pipeline.Store = dayStore
	pipeline.Broadcast = broadcast

	var auditDB *sqlx.DB
	if deps.Cfg.Store.PostgresDSN != "" {
		db, err := sqlx.Connect("postgres", deps.Cfg.Store.PostgresDSN)
		if err != nil {
			log.Error().Err(err).Msg("postgres audit sink: connect failed, continuing without it")
		} else if _, err := db.Exec(postgres.Schema); err != nil {
			log.Error().Err(err).Msg("postgres audit sink: schema migration failed, continuing without it")
			_ = db.Close()
		} else {
			auditDB = db
			pipeline.Audit = postgres.NewSignalRepo(db, 5*time.Second)
		}
	}

	return &Scanner{
		Config:        deps,
		Exchanges:     exchanges,
		Orchestrators: orchestrators,
		Cache:         ohlcvCache,
		Limiter:       limiter,
		Store:         dayStore,
		Pipeline:      pipeline,
		Broadcast:     broadcast,
		Metrics:       metrics,
		Registry:      reg,
		auditDB:       auditDB,
	}, nil
}

// StartContinuous starts the continuous pipeline; it returns an error if
// the pipeline is already running.
func (s *Scanner) StartContinuous(ctx context.Context) error {
	return s.Pipeline.Start(ctx)
}

// StopContinuous stops the continuous pipeline and closes every adapter.
func (s *Scanner) StopContinuous() {
	s.Pipeline.Stop()
}

// Close releases every adapter not already closed by the continuous
// pipeline (used on process shutdown when the pipeline was never
// started).
func (s *Scanner) Close() {
	for _, ex := range s.Exchanges {
		_ = ex.Close()
	}
	if s.auditDB != nil {
		_ = s.auditDB.Close()
	}
}

func durationSeconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
