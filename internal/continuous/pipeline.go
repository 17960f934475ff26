package continuous

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/scan"
)

// Default loop periods, per spec §4.7's table.
const (
	DefaultTickPeriod         = 5 * time.Second
	DefaultSignalPeriod       = 30 * time.Second
	DefaultMarketStatePeriod  = 60 * time.Second
	DefaultFullScanPeriod     = 90 * time.Second

	DefaultTickCapacity   = 100
	DefaultCandleCapacity = 500
	DefaultSignalCapacity = 1000

	confluenceDefaultMinScore = 60
	activeSignalThreshold     = 60
)

// SignalTimeframes is the fixed per-symbol timeframe set the L2 loop
// evaluates, per spec §4.7.
var SignalTimeframes = []adapter.Timeframe{adapter.TF5m, adapter.TF4h, adapter.TF1h, adapter.TF1d}

// TickEntry is one ring-buffer element for the L1 tick loop.
type TickEntry struct {
	Last      float64
	Timestamp time.Time
}

// SignalEntry is one ring-buffer element for the L2 signal loop.
type SignalEntry struct {
	Exchange       string
	Symbol         string
	Timeframe      adapter.Timeframe
	MomentumScore  float64
	ReversionScore float64
	CombinedScore  float64
	Signal         CategoricalSignal
	Cluster        ClusterResult
	Timestamp      time.Time
}

// Bullish reports whether the entry's categorical signal leans long, used
// by the confluence query (spec §4.7).
func (s SignalEntry) Bullish() bool {
	switch s.Signal {
	case SignalMomentumBuy, SignalReversionBull, SignalStrongBuy, SignalWeakBuy:
		return true
	default:
		return false
	}
}

// Bearish reports whether the entry's categorical signal leans short.
func (s SignalEntry) Bearish() bool {
	switch s.Signal {
	case SignalMomentumSell, SignalReversionBear, SignalStrongSell, SignalWeakSell:
		return true
	default:
		return false
	}
}

// MarketState is L3's global snapshot, per spec §4.7.
type MarketState struct {
	BreadthRatio     float64
	VolatilityRegime string // low|med|high
	ActiveSignals    int
	Timestamp        time.Time
}

// SignalPersister is C8's write path, kept as a narrow interface so the
// pipeline doesn't import the store package's concrete types.
type SignalPersister interface {
	AppendSignal(exchange, pair string, tf adapter.Timeframe, entry SignalEntry) error
}

// AuditSink is C15's optional durable mirror of every L2 signal, kept as a
// narrow interface (rather than importing internal/store/postgres directly)
// so the pipeline has no compile-time dependency on database/sql or lib/pq.
// A nil AuditSink on Pipeline disables the mirror entirely.
type AuditSink interface {
	Insert(ctx context.Context, exchange string, tf adapter.Timeframe, entry SignalEntry) error
}

// Config bounds the continuous pipeline's loop periods and buffer
// capacities; zero values fall back to the spec §4.7 defaults.
type Config struct {
	TickPeriod        time.Duration
	SignalPeriod      time.Duration
	MarketStatePeriod time.Duration
	FullScanPeriod    time.Duration

	TickCapacity   int
	CandleCapacity int
	SignalCapacity int

	ScanRequest scan.Request
}

// DefaultConfig matches spec §4.7 defaults.
func DefaultConfig() Config {
	return Config{
		TickPeriod:        DefaultTickPeriod,
		SignalPeriod:      DefaultSignalPeriod,
		MarketStatePeriod: DefaultMarketStatePeriod,
		FullScanPeriod:    DefaultFullScanPeriod,
		TickCapacity:      DefaultTickCapacity,
		CandleCapacity:    DefaultCandleCapacity,
		SignalCapacity:    DefaultSignalCapacity,
		ScanRequest:       scan.DefaultRequest(),
	}
}

// Pipeline runs the four independent continuous loops over a configured
// symbol/exchange set, per spec §4.7. Shared state (ring buffers, market
// state, last full scan) is read by the HTTP API concurrently; writers
// never block readers (RWMutex-backed buffers, a guarded market-state
// pointer). This carries the source's module-level globals
// (last_scan_results, continuous_scanner, ...) explicitly on one value,
// per spec §9's "Global mutable state" design note.
type Pipeline struct {
	Exchanges map[string]adapter.Exchange
	Symbols   []adapter.Symbol
	Primary   string // exchange name L4's full scan runs against
	Store     SignalPersister
	Audit     AuditSink
	Broadcast *Broadcaster
	Config    Config

	ticks   *Registry[TickEntry]
	signals *Registry[SignalEntry]

	stateMu     sync.RWMutex
	marketState MarketState

	scanMu         sync.RWMutex
	lastFullScan   *scan.Result
	lastFullScanAt time.Time

	orchestrators map[string]*scan.Orchestrator

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPipeline builds a pipeline ready to Start. orchestrators must contain
// one *scan.Orchestrator per key in exchanges (used by L4's full scan and,
// indirectly, by any caller wanting the same cache/rate-limit discipline
// for candle fetches).
func NewPipeline(exchanges map[string]adapter.Exchange, orchestrators map[string]*scan.Orchestrator, symbols []adapter.Symbol, primary string, cfg Config) *Pipeline {
	if cfg.TickPeriod == 0 {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		Exchanges:     exchanges,
		Symbols:       symbols,
		Primary:       primary,
		Config:        cfg,
		ticks:         NewRegistry[TickEntry](cfg.TickCapacity),
		signals:       NewRegistry[SignalEntry](cfg.SignalCapacity),
		orchestrators: orchestrators,
	}
}

func tickKey(exchange, pair string) string { return exchange + ":" + pair }
func signalKey(exchange, pair string, tf adapter.Timeframe) string {
	return fmt.Sprintf("%s:%s:%s", exchange, pair, tf)
}

// Running reports whether the pipeline's loops are active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start launches the four loops as goroutines. It returns an error if the
// pipeline is already running.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("continuous pipeline already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	loops := []struct {
		name   string
		period time.Duration
		fn     func(context.Context) error
	}{
		{"tick", p.Config.TickPeriod, p.runTickIteration},
		{"signal", p.Config.SignalPeriod, p.runSignalIteration},
		{"market_state", p.Config.MarketStatePeriod, p.runMarketStateIteration},
		{"full_scan", p.Config.FullScanPeriod, p.runFullScanIteration},
	}
	for _, l := range loops {
		p.wg.Add(1)
		go p.runLoop(loopCtx, l.name, l.period, l.fn)
	}
	return nil
}

// Stop cancels all loops and closes every adapter, then waits for loop
// goroutines to exit. Buffers are preserved for shutdown inspection, per
// spec §4.7.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	for _, ex := range p.Exchanges {
		_ = ex.Close()
	}
}

// runLoop is the generic "run iteration, sleep period (or period/2 on
// error), repeat until cancelled" shape shared by all four loops, per
// spec §9's resolution of the source's market-state 60s-vs-30s
// inconsistency: sleep-on-error is always half the loop's own period.
func (p *Pipeline) runLoop(ctx context.Context, name string, period time.Duration, iteration func(context.Context) error) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := period
		if err := iteration(ctx); err != nil {
			log.Error().Err(err).Str("loop", name).Msg("continuous loop iteration failed")
			wait = period / 2
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// runTickIteration is L1: fetch a ticker for every (exchange,symbol) in
// parallel and append to tick_buffer.
func (p *Pipeline) runTickIteration(ctx context.Context) error {
	var wg sync.WaitGroup
	for name, ex := range p.Exchanges {
		for _, sym := range p.Symbols {
			wg.Add(1)
			go func(name string, ex adapter.Exchange, sym adapter.Symbol) {
				defer wg.Done()
				tctx, cancel := adapter.WithTimeout(ctx)
				defer cancel()
				t, err := ex.FetchTicker(tctx, sym)
				if err != nil {
					return
				}
				p.ticks.For(tickKey(name, sym.Pair)).Push(TickEntry{Last: t.Last, Timestamp: t.Timestamp})
			}(name, ex, sym)
		}
	}
	wg.Wait()
	return nil
}

// runSignalIteration is L2: for each (exchange,symbol,timeframe) fetch the
// last 100 candles, derive the three sub-scores, combine, classify, push
// to signal_buffer, and persist via the C8 store.
func (p *Pipeline) runSignalIteration(ctx context.Context) error {
	var wg sync.WaitGroup
	for name, ex := range p.Exchanges {
		for _, sym := range p.Symbols {
			for _, tf := range SignalTimeframes {
				wg.Add(1)
				go func(name string, ex adapter.Exchange, sym adapter.Symbol, tf adapter.Timeframe) {
					defer wg.Done()
					p.processOneSignal(ctx, name, ex, sym, tf)
				}(name, ex, sym, tf)
			}
		}
	}
	wg.Wait()
	return nil
}

func (p *Pipeline) processOneSignal(ctx context.Context, exchange string, ex adapter.Exchange, sym adapter.Symbol, tf adapter.Timeframe) {
	fctx, cancel := adapter.WithTimeout(ctx)
	defer cancel()
	candles, err := ex.FetchOHLCV(fctx, sym, tf, 100)
	if err != nil || len(candles) < 20 {
		return
	}

	cluster := ClassifyClusters(candles)
	momentum := MomentumSubScore(candles, cluster)
	reversion := Reversion(candles)
	combined := 0.6*momentum.Score + 0.4*reversion.Score
	categorical := ClassifySignal(momentum, combined, reversion)

	entry := SignalEntry{
		Exchange:       exchange,
		Symbol:         sym.Pair,
		Timeframe:      tf,
		MomentumScore:  momentum.Score,
		ReversionScore: reversion.Score,
		CombinedScore:  combined,
		Signal:         categorical,
		Cluster:        cluster,
		Timestamp:      time.Now(),
	}
	p.signals.For(signalKey(exchange, sym.Pair, tf)).Push(entry)

	if p.Store != nil {
		if err := p.Store.AppendSignal(exchange, sym.Pair, tf, entry); err != nil {
			log.Warn().Err(err).Str("symbol", sym.Pair).Msg("signal persistence failed")
		}
	}
	if p.Audit != nil {
		if err := p.Audit.Insert(ctx, exchange, tf, entry); err != nil {
			log.Warn().Err(err).Str("symbol", sym.Pair).Msg("audit sink insert failed")
		}
	}
	if p.Broadcast != nil {
		p.Broadcast.Publish(entry)
	}
}

// runMarketStateIteration is L3: recompute breadth, volatility regime, and
// active-signal count over the current buffer snapshots.
func (p *Pipeline) runMarketStateIteration(ctx context.Context) error {
	advancing, declining := 0, 0
	var absReturns []float64

	for _, key := range p.ticks.Keys() {
		snap := p.ticks.For(key).Snapshot()
		if len(snap) < 2 {
			continue
		}
		prev, cur := snap[len(snap)-2], snap[len(snap)-1]
		if cur.Last > prev.Last {
			advancing++
		} else if cur.Last < prev.Last {
			declining++
		}
		for i := 1; i < len(snap); i++ {
			if snap[i-1].Last == 0 {
				continue
			}
			absReturns = append(absReturns, math.Abs((snap[i].Last-snap[i-1].Last)/snap[i-1].Last))
		}
	}

	breadth := 0.5
	if advancing+declining > 0 {
		breadth = float64(advancing) / float64(advancing+declining)
	}

	meanAbsReturn := 0.0
	if len(absReturns) > 0 {
		sum := 0.0
		for _, r := range absReturns {
			sum += r
		}
		meanAbsReturn = sum / float64(len(absReturns))
	}
	volRegime := "low"
	switch {
	case meanAbsReturn > 0.01:
		volRegime = "high"
	case meanAbsReturn > 0.003:
		volRegime = "med"
	}

	active := 0
	for _, key := range p.signals.Keys() {
		if latest, ok := p.signals.For(key).Latest(); ok && latest.CombinedScore > activeSignalThreshold {
			active++
		}
	}

	p.stateMu.Lock()
	p.marketState = MarketState{
		BreadthRatio:     breadth,
		VolatilityRegime: volRegime,
		ActiveSignals:    active,
		Timestamp:        time.Now(),
	}
	p.stateMu.Unlock()
	return nil
}

// MarketState returns the latest L3 snapshot.
func (p *Pipeline) MarketState() MarketState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.marketState
}

// runFullScanIteration is L4: invoke the single-exchange scan orchestrator
// on the primary adapter and replace last_full_scan.
func (p *Pipeline) runFullScanIteration(ctx context.Context) error {
	o, ok := p.orchestrators[p.Primary]
	if !ok {
		return fmt.Errorf("no orchestrator configured for primary exchange %q", p.Primary)
	}
	res, err := o.Scan(ctx, p.Config.ScanRequest)
	if err != nil {
		return err
	}
	p.scanMu.Lock()
	p.lastFullScan = &res
	p.lastFullScanAt = time.Now()
	p.scanMu.Unlock()
	return nil
}

// LastFullScan returns L4's most recent result, if any.
func (p *Pipeline) LastFullScan() (scan.Result, bool) {
	p.scanMu.RLock()
	defer p.scanMu.RUnlock()
	if p.lastFullScan == nil {
		return scan.Result{}, false
	}
	return *p.lastFullScan, true
}

// LastFullScanAt reports when L4's most recent result completed, the zero
// time if none has completed yet.
func (p *Pipeline) LastFullScanAt() time.Time {
	p.scanMu.RLock()
	defer p.scanMu.RUnlock()
	return p.lastFullScanAt
}

// SignalBuffer exposes one (exchange,symbol,timeframe) signal ring buffer,
// used by the signals/confluence queries.
func (p *Pipeline) SignalBuffer(exchange, pair string, tf adapter.Timeframe) *RingBuffer[SignalEntry] {
	return p.signals.For(signalKey(exchange, pair, tf))
}

// AllSignalKeys returns every known (exchange,symbol,timeframe) key.
func (p *Pipeline) AllSignalKeys() []string {
	return p.signals.Keys()
}

// BufferSizes reports each buffer's current length, for the continuous
// status endpoint.
func (p *Pipeline) BufferSizes() (ticks, signals int) {
	for _, k := range p.ticks.Keys() {
		ticks += p.ticks.For(k).Len()
	}
	for _, k := range p.signals.Keys() {
		signals += p.signals.For(k).Len()
	}
	return
}
