package indicators

import "github.com/sawpanic/marketscanner/internal/adapter"

// VWAP computes the cumulative volume-weighted average price over the
// entire supplied window: sum(typical*vol)/sum(vol) (spec §4.4).
func VWAP(candles []adapter.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	var numerator, denominator float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		numerator += typical * c.Volume
		denominator += c.Volume
	}
	if denominator == 0 {
		return 0, false
	}
	return numerator / denominator, true
}

// VWAPBullish reports whether the current close is above VWAP.
func VWAPBullish(price, vwap float64) bool {
	return price > vwap
}
