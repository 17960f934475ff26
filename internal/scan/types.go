// Package scan implements the scan orchestrator (C6): the per-request
// pipeline that enumerates symbols, fans out per-symbol analysis across
// the C1-C3 exchange/cache/rate-limit stack, scores each via C4/C5, ranks
// the results, and reports timing/performance breakdowns. Grounded on the
// teacher's internal/scan/pipeline/momentum_pipeline.go (fan-out-then-rank
// shape) and cmd/cryptorun/scan_main.go (single/parallel mode switch).
package scan

import (
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/indicators"
	"github.com/sawpanic/marketscanner/internal/scoring"
)

// Signal is the per-(symbol,timeframe) record produced by one analysis
// pass, per spec §3. It carries both the legacy label/state and the four
// composite scores, plus the SL/TP RiskAdvisory computed by Analyze.
// Position sizing is not part of Signal: it depends on account state the
// orchestrator doesn't own.
type Signal struct {
	Symbol    adapter.Symbol
	Timeframe adapter.Timeframe
	Price     float64
	Change24h float64
	Volume    float64

	Label Label
	State scoring.State

	Strength         float64
	CompositeScore   float64
	VolumeComposite  float64
	OpportunityScore float64
	CombinedScore    float64

	Risk   scoring.RiskAdvisory
	Regime indicators.Regime

	RegimeConfidence  float64
	TrendStrength     float64
	Volatility        indicators.Volatility
	SuggestedThresh   float64
	IchimokuBullish   bool
	VWAPBullish       bool
	BBPosition        *float64
	RSI               *float64
	MACDHist          *float64
	EMA21             *float64

	Timestamp time.Time
}

// Label is a re-export of scoring.Label kept local so downstream packages
// (continuous, store, httpapi) depend on scan.Signal alone.
type Label = scoring.Label

// combinedScoreInvariantEps bounds the testable-property-#1 cross-check
// between CombinedScore and its weighted components.
const combinedScoreInvariantEps = 1e-6

// TimingBreakdown reports the single-scan timing instrumentation required
// by spec §4.6/§6: initialization, scan execution, filtering, total.
type TimingBreakdown struct {
	Initialization time.Duration
	ScanExecution  time.Duration
	Filtering      time.Duration
	Total          time.Duration
}

// Result is the outcome of one single-exchange scan: ranked, truncated
// signals plus timing and scan-universe bookkeeping.
type Result struct {
	Signals      []Signal
	TotalScanned int
	Dropped      int
	Timing       TimingBreakdown
}

// ExchangePerformance is one exchange's contribution to a parallel scan,
// per spec §4.6 "Emit a performance breakdown".
type ExchangePerformance struct {
	Exchange    string
	Success     bool
	Duration    time.Duration
	SignalCount int
	Error       string
}

// ParallelTiming is the parallel-scan timing instrumentation from spec
// §4.6/§6.
type ParallelTiming struct {
	ParallelDuration     time.Duration
	SequentialEstimated  time.Duration
	Speedup              float64
	TimeSaved            time.Duration
	Filtering            time.Duration
	PerExchange          []ExchangePerformance
}

// ParallelResult is the outcome of a multi-exchange parallel scan.
type ParallelResult struct {
	Signals []Signal
	Timing  ParallelTiming
}

// Request bundles the scan parameters from spec §6's Scan API.
type Request struct {
	Timeframe    adapter.Timeframe
	MarketType   adapter.MarketType
	QuoteCurrency string
	SignalFilter string // "all", "BUY", "SELL", "HOLD"
	MinStrength  float64 // 0..100
	FullAnalysis bool
	TopN         int
}

// DefaultRequest matches spec §6's Scan API defaults (medium timeframe,
// signal=all, minStrength=50, fullAnalysis=true, top_n=50).
func DefaultRequest() Request {
	return Request{
		Timeframe:     adapter.TF1h,
		MarketType:    adapter.MarketFuture,
		QuoteCurrency: "USDT",
		SignalFilter:  "all",
		MinStrength:   50,
		FullAnalysis:  true,
		TopN:          50,
	}
}

// matchesFilter reports whether signal passes the request's signal/
// minStrength filters.
func (r Request) matchesFilter(s Signal) bool {
	if r.Strength() > s.Strength {
		return false
	}
	if r.SignalFilter == "" || r.SignalFilter == "all" {
		return true
	}
	return string(s.Label.WireSignal()) == r.SignalFilter
}

// Strength returns MinStrength, or 0 (no minimum) when it is unset or
// non-positive. The default of 50 comes from DefaultRequest.
func (r Request) Strength() float64 {
	if r.MinStrength <= 0 {
		return 0
	}
	return r.MinStrength
}
