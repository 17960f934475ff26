package indicators

import "github.com/sawpanic/marketscanner/internal/adapter"

// VolumeRatioWindow is the lookback for the volume-ratio baseline (spec §3).
const VolumeRatioWindow = 20

// VolumeRatio computes the last bar's volume relative to the trailing
// VolumeRatioWindow-bar mean (excluding the last bar itself is unnecessary
// per spec; it's "vs 20-bar mean").
func VolumeRatio(candles []adapter.Candle) (float64, bool) {
	if len(candles) < VolumeRatioWindow {
		return 0, false
	}
	window := candles[len(candles)-VolumeRatioWindow:]
	sum := 0.0
	for _, c := range window {
		sum += c.Volume
	}
	mean := sum / float64(len(window))
	if mean == 0 {
		return 0, false
	}
	return candles[len(candles)-1].Volume / mean, true
}

// OBV computes On-Balance Volume over the full series.
func OBV(candles []adapter.Candle) (float64, bool) {
	if len(candles) < 2 {
		return 0, false
	}
	obv := 0.0
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
	}
	return obv, true
}

// VolumeProfileBins is the default bin count for the volume-profile
// histogram (spec §4.4).
const VolumeProfileBins = 50

// VolumeProfile computes a volume-weighted histogram of close prices across
// bins equal-width bins spanning [min,max] of the window, and returns the
// point-of-control price (midpoint of the argmax bin).
func VolumeProfile(candles []adapter.Candle, bins int) (hist []float64, pocPrice float64, ok bool) {
	if len(candles) == 0 || bins <= 0 {
		return nil, 0, false
	}
	minPrice, maxPrice := candles[0].Close, candles[0].Close
	for _, c := range candles {
		if c.Close < minPrice {
			minPrice = c.Close
		}
		if c.Close > maxPrice {
			maxPrice = c.Close
		}
	}
	if maxPrice == minPrice {
		return nil, minPrice, false
	}
	width := (maxPrice - minPrice) / float64(bins)
	hist = make([]float64, bins)
	for _, c := range candles {
		idx := int((c.Close - minPrice) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		hist[idx] += c.Volume
	}
	maxIdx := 0
	for i, v := range hist {
		if v > hist[maxIdx] {
			maxIdx = i
		}
	}
	pocPrice = minPrice + width*(float64(maxIdx)+0.5)
	return hist, pocPrice, true
}

// AnchoredPOC computes the point-of-control over the window starting at the
// bar with the global maximum high (spec §4.4 "anchored" profile).
func AnchoredPOC(candles []adapter.Candle, bins int) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	maxHighIdx := 0
	for i, c := range candles {
		if c.High > candles[maxHighIdx].High {
			maxHighIdx = i
		}
	}
	_, poc, ok := VolumeProfile(candles[maxHighIdx:], bins)
	return poc, ok
}

// FixedRangePOC computes the point-of-control over a window spanning 20% of
// the series' price range, centered on the current close (spec §4.4
// "fixed-range" profile).
func FixedRangePOC(candles []adapter.Candle, bins int) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	minPrice, maxPrice := candles[0].Close, candles[0].Close
	for _, c := range candles {
		if c.Close < minPrice {
			minPrice = c.Close
		}
		if c.Close > maxPrice {
			maxPrice = c.Close
		}
	}
	rangeSpan := (maxPrice - minPrice) * 0.20
	close := candles[len(candles)-1].Close
	lo, hi := close-rangeSpan/2, close+rangeSpan/2

	var windowed []adapter.Candle
	for _, c := range candles {
		if c.Close >= lo && c.Close <= hi {
			windowed = append(windowed, c)
		}
	}
	if len(windowed) == 0 {
		windowed = candles
	}
	_, poc, ok := VolumeProfile(windowed, bins)
	return poc, ok
}

// POCDistance is the signed fractional distance of price from the point of
// control ((price-poc)/poc, so 0.01 means 1% above).
func POCDistance(price, poc float64) float64 {
	if poc == 0 {
		return 0
	}
	return (price - poc) / poc
}
