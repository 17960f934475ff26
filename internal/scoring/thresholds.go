// Package scoring implements C5: deriving the signal label, legacy signal
// state, signal strength, the four composite scores, and the SL/TP/position
// sizing advisory from a FeatureVector, per spec §4.5. The step-numbered
// pipeline shape (component scores -> weighted sum -> clamp, with a
// metadata side-channel) is grounded on the teacher's
// internal/domain/scoring/composite.go CalculateCompositeScore.
package scoring

import "github.com/sawpanic/marketscanner/internal/adapter"

// Thresholds is a single (market-type, timeframe-style) row of
// get_dynamic_config()'s signal_thresholds table.
type Thresholds struct {
	MomentumThreshold float64
	RSIMin            float64
	RSIMax            float64
	MACDMin           float64
}

// timeframeStyle buckets a raw candle timeframe into the style keys
// get_dynamic_config().timeframes uses: scalping=1m, short=5m, medium=1h,
// daily=1d, weekly=1w. TF4h has no source equivalent; it is bucketed with
// "medium" as the nearest neighbor (see DESIGN.md).
func timeframeStyle(tf adapter.Timeframe) string {
	switch tf {
	case adapter.TF1m:
		return "scalping"
	case adapter.TF5m:
		return "short"
	case adapter.TF1h, adapter.TF4h:
		return "medium"
	case adapter.TF1d:
		return "daily"
	case adapter.TF1w:
		return "weekly"
	default:
		return "medium"
	}
}

// signalThresholds reproduces get_dynamic_config()'s signal_thresholds
// table verbatim: market type (crypto/forex) x timeframe style.
var signalThresholds = map[string]map[string]Thresholds{
	"crypto": {
		"scalping": {MomentumThreshold: 0.01, RSIMin: 55, RSIMax: 70, MACDMin: 0},
		"short":    {MomentumThreshold: 0.03, RSIMin: 52, RSIMax: 68, MACDMin: 0},
		"medium":   {MomentumThreshold: 0.05, RSIMin: 50, RSIMax: 65, MACDMin: 0},
		"daily":    {MomentumThreshold: 0.06, RSIMin: 50, RSIMax: 65, MACDMin: 0},
		"weekly":   {MomentumThreshold: 0.15, RSIMin: 45, RSIMax: 70, MACDMin: 0},
	},
	"forex": {
		"scalping": {MomentumThreshold: 0.002, RSIMin: 50, RSIMax: 70, MACDMin: 0},
		"short":    {MomentumThreshold: 0.005, RSIMin: 48, RSIMax: 68, MACDMin: 0},
		"medium":   {MomentumThreshold: 0.008, RSIMin: 47, RSIMax: 67, MACDMin: 0},
		"daily":    {MomentumThreshold: 0.01, RSIMin: 45, RSIMax: 65, MACDMin: 0},
		"weekly":   {MomentumThreshold: 0.03, RSIMin: 40, RSIMax: 70, MACDMin: 0},
	},
}

// DefaultThresholds returns the (market-type, timeframe) row of
// signal_thresholds, grounded verbatim on get_dynamic_config() in
// original_source/scanner.py. MarketForex maps to the "forex" table; every
// other MarketType (spot/future/swap) maps to "crypto".
func DefaultThresholds(marketType adapter.MarketType, tf adapter.Timeframe) Thresholds {
	market := "crypto"
	if marketType == adapter.MarketForex {
		market = "forex"
	}
	return signalThresholds[market][timeframeStyle(tf)]
}
