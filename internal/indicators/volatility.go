package indicators

import (
	"math"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// ATRWindow is the standard Average True Range period (spec §3).
const ATRWindow = 14

// ATR computes the rolling mean of true range, Wilder-smoothed, grounded on
// the teacher's CalculateATR.
func ATR(candles []adapter.Candle, period int) (float64, bool) {
	if len(candles) < period+1 {
		return 0, false
	}
	trueRanges := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		hl := cur.High - cur.Low
		hc := abs(cur.High - prev.Close)
		lc := abs(cur.Low - prev.Close)
		trueRanges[i-1] = max3(hl, hc, lc)
	}
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = atr*(1-alpha) + trueRanges[i]*alpha
	}
	return atr, true
}

// BBWindow and BBStdDevMultiplier are the standard Bollinger Band
// parameters (spec §3): 20-bar SMA +/- 2 stddev.
const (
	BBWindow           = 20
	BBStdDevMultiplier = 2.0
)

// BollingerBands computes upper/middle/lower bands, width, and position.
// bb_position = (price - lower) / (upper - lower), clamped to [0,1], with
// 0.5 returned when upper == lower (spec §4.4).
func BollingerBands(prices []float64, period int) (upper, middle, lower, width, position float64, ok bool) {
	if len(prices) < period {
		return 0, 0, 0, 0, 0, false
	}
	window := prices[len(prices)-period:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(period)

	variance := 0.0
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(period)
	stddev := math.Sqrt(variance)

	upper = mean + BBStdDevMultiplier*stddev
	lower = mean - BBStdDevMultiplier*stddev
	middle = mean
	width = upper - lower

	price := prices[len(prices)-1]
	if upper == lower {
		position = 0.5
	} else {
		position = (price - lower) / (upper - lower)
		if position < 0 {
			position = 0
		} else if position > 1 {
			position = 1
		}
	}
	return upper, middle, lower, width, position, true
}
