package scan

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/cache"
	"github.com/sawpanic/marketscanner/internal/ratelimit"
)

// Config bounds the orchestrator's symbol universe and output size. Both
// are named, documented settings rather than magic numbers, per spec §9's
// resolution of scan_results.py's hard-coded 460.
type Config struct {
	MaxSymbols int // default 460
	TopN       int // default 50
	CandleLimit int // candles fetched per symbol, default 220 (indicators.MinWindow + 10)
}

// DefaultConfig matches spec defaults.
func DefaultConfig() Config {
	return Config{MaxSymbols: 460, TopN: 50, CandleLimit: 220}
}

// Orchestrator runs the C6 scan pipeline against one exchange: fetch
// markets, fan out per-symbol fetch+analyze under the C2/C3 cache and
// rate-limit discipline, rank, and truncate. Grounded on the teacher's
// momentum_pipeline.go fan-out loop and scan_main.go's timing report.
type Orchestrator struct {
	Exchange adapter.Exchange
	Cache    cache.OHLCVCache
	Limiter  *ratelimit.Manager
	Analyzer *Analyzer
	Retry    ratelimit.RetryConfig
	Config   Config
}

// NewOrchestrator wires the C1-C5 stack behind one exchange adapter.
func NewOrchestrator(ex adapter.Exchange, c cache.OHLCVCache, limiter *ratelimit.Manager) *Orchestrator {
	return &Orchestrator{
		Exchange: ex,
		Cache:    c,
		Limiter:  limiter,
		Analyzer: NewAnalyzer(),
		Retry:    ratelimit.DefaultRetryConfig(),
		Config:   DefaultConfig(),
	}
}

// cpuPoolSize is the CPU-bound worker-pool size: hardware thread count,
// distinct from the I/O gate inside o.Limiter, per spec §5's "two pools"
// scheduling model.
func cpuPoolSize() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

// Scan runs one single-exchange scan per spec §4.6: FetchMarkets (capped
// to MaxSymbols), fan out fetch+analyze, rank by CombinedScore desc, and
// truncate to TopN. A failure analyzing any one symbol is logged and
// elided from the result set -- the scan as a whole never fails because
// of one symbol (spec §7).
func (o *Orchestrator) Scan(ctx context.Context, req Request) (Result, error) {
	initStart := time.Now()

	markets, err := o.Exchange.FetchMarkets(ctx, req.MarketType, req.QuoteCurrency)
	if err != nil {
		return Result{}, err
	}
	if o.Config.MaxSymbols > 0 && len(markets) > o.Config.MaxSymbols {
		markets = markets[:o.Config.MaxSymbols]
	}
	initDuration := time.Since(initStart)

	execStart := time.Now()
	rows := make([]Signal, len(markets))
	ok := make([]bool, len(markets))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := cpuPoolSize()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sig, fetched := o.analyzeOne(ctx, markets[i], req)
				if fetched {
					rows[i] = sig
					ok[i] = true
				}
			}
		}()
	}
	for i := range markets {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
	execDuration := time.Since(execStart)

	filterStart := time.Now()
	var signals []Signal
	dropped := 0
	for i, present := range ok {
		if !present {
			dropped++
			continue
		}
		if !req.matchesFilter(rows[i]) {
			continue
		}
		signals = append(signals, rows[i])
	}
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].CombinedScore > signals[j].CombinedScore
	})
	topN := o.Config.TopN
	if req.TopN > 0 {
		topN = req.TopN
	}
	if topN > 0 && len(signals) > topN {
		signals = signals[:topN]
	}
	filterDuration := time.Since(filterStart)

	return Result{
		Signals:      signals,
		TotalScanned: len(markets),
		Dropped:      dropped,
		Timing: TimingBreakdown{
			Initialization: initDuration,
			ScanExecution:  execDuration,
			Filtering:      filterDuration,
			Total:          time.Since(initStart),
		},
	}, nil
}

// analyzeOne fetches (cache-aware, rate-limited, retried) and analyzes one
// symbol. The bool return is false when the symbol's row should be dropped
// (fetch failure or data-insufficient), never an error -- per spec §7's
// "the row is dropped" recovery policy.
func (o *Orchestrator) analyzeOne(ctx context.Context, symbol adapter.Symbol, req Request) (Signal, bool) {
	limit := o.Config.CandleLimit
	key := cache.Key{Exchange: symbol.ExchangeID, Pair: symbol.Pair, Timeframe: req.Timeframe, Limit: limit}

	if cached, hit := o.Cache.Get(key); hit {
		sig, err := o.Analyzer.Analyze(symbol, req.MarketType, req.Timeframe, cached)
		if err != nil {
			log.Debug().Err(err).Str("symbol", symbol.Pair).Msg("symbol dropped from scan")
			return Signal{}, false
		}
		return sig, true
	}

	var candles []adapter.Candle
	fetchErr := o.Limiter.Guard(ctx, symbol.ExchangeID, func(ctx context.Context) error {
		return ratelimit.Retry(ctx, o.Retry, func(ctx context.Context) error {
			fetched, err := o.Exchange.FetchOHLCV(ctx, symbol, req.Timeframe, limit)
			if err != nil {
				return err
			}
			candles = dropMalformed(fetched)
			return nil
		})
	})
	if fetchErr != nil {
		log.Debug().Err(fetchErr).Str("symbol", symbol.Pair).Msg("symbol dropped from scan")
		return Signal{}, false
	}

	o.Cache.Set(key, candles)
	sig, err := o.Analyzer.Analyze(symbol, req.MarketType, req.Timeframe, candles)
	if err != nil {
		log.Debug().Err(err).Str("symbol", symbol.Pair).Msg("symbol dropped from scan")
		return Signal{}, false
	}
	return sig, true
}

// dropMalformed elides candles that violate the data model's invariants
// (spec §3: "malformed candles are dropped at ingress").
func dropMalformed(candles []adapter.Candle) []adapter.Candle {
	out := make([]adapter.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}
