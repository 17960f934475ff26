// Package indicators implements the C4 indicator engine: pure, deterministic
// transforms from a candle window to the FeatureVector defined in spec §3.
// Each function follows the teacher's internal/domain/indicators/technical.go
// shape -- a plain Go loop over a fixed window, returning a (value, ok)
// pair so callers can tell "computed zero" from "absent".
package indicators

import (
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// MinWindow is the minimum candle-series length the engine needs to produce
// a fully populated FeatureVector: Ichimoku's Senkou B span (52) plus the
// regime classifier's 200-bar lookback is the binding constraint, so
// min_window = max(windows) + 10 = 210 per spec §3.
const MinWindow = 210

// Regime is the coarse market-state classification.
type Regime string

const (
	RegimeBull    Regime = "bull"
	RegimeBear    Regime = "bear"
	RegimeRanging Regime = "ranging"
)

// Volatility is the coarse volatility bucket.
type Volatility string

const (
	VolLow  Volatility = "low"
	VolMed  Volatility = "med"
	VolHigh Volatility = "high"
)

// FibDirection is the dominant swing direction used for Fibonacci levels.
type FibDirection string

const (
	FibBull FibDirection = "bull"
	FibBear FibDirection = "bear"
)

// FeatureVector is the fixed record produced from a CandleSeries of length
// >= MinWindow, per spec §3. Pointer fields are nil when the underlying
// indicator's minimum window is unmet ("absent"); the scorer treats an
// absent field as neutral.
type FeatureVector struct {
	Symbol    string
	Timestamp time.Time
	Price     float64

	// Momentum
	MomentumShort *float64
	MomentumLong  *float64
	Momentum7d    *float64
	Momentum30d   *float64

	// Oscillators
	RSI     *float64
	StochK  *float64
	StochD  *float64

	// Trend
	MACDHist *float64
	EMA5     *float64
	EMA9     *float64
	EMA13    *float64
	EMA21    *float64
	EMA50    *float64
	EMA200   *float64
	SMA20    *float64
	SMA50    *float64
	ADX      *float64

	// Volatility
	ATR        *float64
	BBUpper    *float64
	BBMiddle   *float64
	BBLower    *float64
	BBWidth    *float64
	BBPosition *float64

	// Volume
	VolumeRatio       *float64
	OBV               *float64
	VolumeHist        []float64
	POCPrice          *float64
	POCDistance       *float64
	AnchoredPOCPrice  *float64
	FixedRangePOC     *float64

	// Ichimoku
	Tenkan     *float64
	Kijun      *float64
	SenkouA    *float64
	SenkouB    *float64
	CloudGreen bool

	// VWAP
	VWAP         *float64
	VWAPBullish  bool

	// Fibonacci
	FibNearestRetracement *float64
	FibNearestExtension   *float64
	FibDirection          FibDirection
	FibConfluence         *float64

	// Regime
	Regime           Regime
	RegimeConfidence float64
	TrendStrength    float64
	// TrendScore is the 0-10 scale EMA-slope/ADX/breakout blend consumed by
	// the composite and opportunity scores -- distinct from TrendStrength
	// (the 0-100 ADX-derived figure from ClassifyRegime).
	TrendScore                    *float64
	Volatility                    Volatility
	ATRPct                        float64
	SuggestedOpportunityThreshold float64

	// Divergence flags consumed by the opportunity score (§4.5).
	RSIBearishDivergence bool
	IchimokuBullish      bool
}

// windowPrices extracts close prices from a candle slice.
func windowPrices(candles []adapter.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func ptr(v float64) *float64 { return &v }
