package indicators

import "github.com/sawpanic/marketscanner/internal/adapter"

// FibLookback caps the swing-detection window at 55 bars (spec §4.4).
const FibLookback = 55

var retracementRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1.0}
var extensionRatios = []float64{1.272, 1.618, 2.0}

// FibResult bundles the Fibonacci levels and the nearest-to-price levels.
type FibResult struct {
	Direction            FibDirection
	NearestRetracement    float64
	NearestExtension      float64
	Confluence            float64
	RetracementLevels      []float64
	ExtensionLevels        []float64
}

// Fibonacci computes retracement/extension levels over the last
// min(len, FibLookback) bars, per spec §4.4: the swing high/low order
// decides direction, 0/.236/.382/.5/.618/.786/1.0 retracements between the
// two, 1.272/1.618/2.0 extensions beyond the swing top.
func Fibonacci(candles []adapter.Candle) (FibResult, bool) {
	if len(candles) < 2 {
		return FibResult{}, false
	}
	lookback := FibLookback
	if len(candles) < lookback {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]

	hiIdx, loIdx := 0, 0
	for i, c := range window {
		if c.High > window[hiIdx].High {
			hiIdx = i
		}
		if c.Low < window[loIdx].Low {
			loIdx = i
		}
	}
	high := window[hiIdx].High
	low := window[loIdx].Low
	rangeSpan := high - low
	if rangeSpan <= 0 {
		return FibResult{}, false
	}

	var direction FibDirection
	if hiIdx > loIdx {
		direction = FibBull
	} else {
		direction = FibBear
	}

	retLevels := make([]float64, len(retracementRatios))
	extLevels := make([]float64, len(extensionRatios))

	if direction == FibBull {
		for i, f := range retracementRatios {
			retLevels[i] = high - rangeSpan*f
		}
		for i, f := range extensionRatios {
			extLevels[i] = high + rangeSpan*(f-1)
		}
	} else {
		for i, f := range retracementRatios {
			retLevels[i] = low + rangeSpan*f
		}
		for i, f := range extensionRatios {
			extLevels[i] = low - rangeSpan*(f-1)
		}
	}

	price := candles[len(candles)-1].Close
	nearestRet := nearestLevel(retLevels, price)
	nearestExt := nearestLevel(extLevels, price)

	nearestOverall := nearestRet
	if abs(nearestExt-price) < abs(nearestRet-price) {
		nearestOverall = nearestExt
	}
	distPct := abs(price-nearestOverall) / rangeSpan
	confluence := 100.0 * (1.0 - clamp01(distPct*4))

	return FibResult{
		Direction:          direction,
		NearestRetracement: nearestRet,
		NearestExtension:   nearestExt,
		Confluence:         confluence,
		RetracementLevels:  retLevels,
		ExtensionLevels:    extLevels,
	}, true
}

func nearestLevel(levels []float64, price float64) float64 {
	nearest := levels[0]
	best := abs(levels[0] - price)
	for _, l := range levels[1:] {
		d := abs(l - price)
		if d < best {
			best = d
			nearest = l
		}
	}
	return nearest
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
