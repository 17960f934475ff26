package indicators

import "github.com/sawpanic/marketscanner/internal/adapter"

// EMA computes the exponential moving average over prices with the given
// period, seeded with the period's SMA, returning the final value.
func EMA(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	alpha := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*alpha + ema*(1-alpha)
	}
	return ema, true
}

// EMASeries returns the full EMA series (same length as prices, with the
// first period entries equal to the seeding SMA), used internally by MACD.
func EMASeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	for i := 0; i < period; i++ {
		out[i] = ema
	}
	alpha := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return out
}

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	sum := 0.0
	window := prices[len(prices)-period:]
	for _, p := range window {
		sum += p
	}
	return sum / float64(period), true
}

// MACDFast, MACDSlow, MACDSignal are the standard 12/26/9 periods (spec §3).
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDHistogram computes macd_line - macd_signal, per spec §4.4:
// MACD = EMA(12) - EMA(26); signal = EMA(9) of that series.
func MACDHistogram(prices []float64) (float64, bool) {
	if len(prices) < MACDSlow+MACDSignal {
		return 0, false
	}
	fast := EMASeries(prices, MACDFast)
	slow := EMASeries(prices, MACDSlow)
	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = fast[i] - slow[i]
	}
	signalLine := EMASeries(macdLine, MACDSignal)
	last := len(prices) - 1
	return macdLine[last] - signalLine[last], true
}

// ADXWindow is the standard ADX period (spec §3).
const ADXWindow = 14

// ADX computes the standard Wilder Average Directional Index: true range
// and directional movement smoothed with Wilder's method, DI+/DI- derived,
// then DX smoothed a second time into ADX (the teacher's technical.go omits
// this second smoothing pass -- spec §4.4 calls for "standard Wilder ADX",
// so it is added here).
func ADX(candles []adapter.Candle, period int) (float64, bool) {
	if len(candles) < period*2+1 {
		return 0, false
	}
	n := len(candles)
	trueRanges := make([]float64, n-1)
	plusDM := make([]float64, n-1)
	minusDM := make([]float64, n-1)

	for i := 1; i < n; i++ {
		cur, prev := candles[i], candles[i-1]
		hl := cur.High - cur.Low
		hc := abs(cur.High - prev.Close)
		lc := abs(cur.Low - prev.Close)
		trueRanges[i-1] = max3(hl, hc, lc)

		plusMove := cur.High - prev.High
		minusMove := prev.Low - cur.Low
		if plusMove > minusMove && plusMove > 0 {
			plusDM[i-1] = plusMove
		}
		if minusMove > plusMove && minusMove > 0 {
			minusDM[i-1] = minusMove
		}
	}

	smoothedTR, smoothedPlusDM, smoothedMinusDM := 0.0, 0.0, 0.0
	for i := 0; i < period; i++ {
		smoothedTR += trueRanges[i]
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
	}

	dxValues := make([]float64, 0, len(trueRanges)-period+1)
	pdi, mdi := diValues(smoothedPlusDM, smoothedMinusDM, smoothedTR)
	dxValues = append(dxValues, dx(pdi, mdi))

	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		smoothedTR = smoothedTR*(1-alpha) + trueRanges[i]*alpha
		smoothedPlusDM = smoothedPlusDM*(1-alpha) + plusDM[i]*alpha
		smoothedMinusDM = smoothedMinusDM*(1-alpha) + minusDM[i]*alpha
		pdi, mdi = diValues(smoothedPlusDM, smoothedMinusDM, smoothedTR)
		dxValues = append(dxValues, dx(pdi, mdi))
	}

	if len(dxValues) < period {
		// Not enough DX samples for the second smoothing pass: use a
		// simple mean as a stable fallback rather than reporting absent.
		sum := 0.0
		for _, v := range dxValues {
			sum += v
		}
		return sum / float64(len(dxValues)), true
	}

	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dxValues[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxValues); i++ {
		adx = adx*(1-alpha) + dxValues[i]*alpha
	}
	return adx, true
}

func diValues(plusDM, minusDM, tr float64) (pdi, mdi float64) {
	if tr == 0 {
		return 0, 0
	}
	return 100.0 * plusDM / tr, 100.0 * minusDM / tr
}

func dx(pdi, mdi float64) float64 {
	sum := pdi + mdi
	if sum == 0 {
		return 0
	}
	return 100.0 * abs(pdi-mdi) / sum
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// TrendScore blends EMA slope, ADX, and a price-breakout flag into a single
// 0-10 scale consumed by the composite and opportunity scores (spec §4.5).
// emaPeriod defaults to 21 per the source's calculate_trend_score.
func TrendScore(prices []float64, emaPeriod int, adx float64) (float64, bool) {
	if len(prices) < emaPeriod+2 {
		return 0, false
	}
	emaSeries := EMASeries(prices, emaPeriod)
	last := emaSeries[len(emaSeries)-1]
	anchor := emaSeries[len(emaSeries)-emaPeriod]

	emaSlope := 0.0
	if anchor != 0 {
		emaSlope = (last - anchor) / abs(anchor)
	}
	emaScore := clamp01Sym((emaSlope * 100) / 2)
	emaScore = (emaScore + 1) / 2

	adxScore := adx / 50
	if adxScore > 1 {
		adxScore = 1
	}
	if adxScore < 0 {
		adxScore = 0
	}

	lookback := emaPeriod
	priceScore := 0.5
	if len(prices) >= lookback+2 {
		recent := prices[len(prices)-lookback-1 : len(prices)-1]
		last := prices[len(prices)-1]
		maxRecent, minRecent := recent[0], recent[0]
		for _, p := range recent {
			if p > maxRecent {
				maxRecent = p
			}
			if p < minRecent {
				minRecent = p
			}
		}
		switch {
		case last > maxRecent:
			priceScore = 1.0
		case last < minRecent:
			priceScore = 0.0
		default:
			priceScore = 0.5
		}
	}

	const emaWeight, adxWeight, priceWeight = 0.4, 0.4, 0.2
	score := emaScore*emaWeight + adxScore*adxWeight + priceScore*priceWeight
	return score * 10, true
}

func clamp01Sym(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
