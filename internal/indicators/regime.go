package indicators

import (
	"math"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// RegimeLookback caps the regime classifier's window at 200 bars (spec §4.4).
const RegimeLookback = 200

// RegimeResult bundles the classification output.
type RegimeResult struct {
	Regime                        Regime
	Confidence                    float64
	TrendStrength                 float64
	Volatility                    Volatility
	ATRPct                        float64
	SuggestedOpportunityThreshold float64
}

// ClassifyRegime combines EMA stacking (20/50/200), ADX, ATR% of price, and
// 20-bar price volatility over the last min(len,200) bars to emit
// bull/bear/ranging with a confidence score, per spec §4.4.
func ClassifyRegime(candles []adapter.Candle, price, adx, atr float64) RegimeResult {
	lookback := RegimeLookback
	if len(candles) < lookback {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]
	prices := windowPrices(window)

	ema20, ok20 := EMA(prices, 20)
	ema50, ok50 := EMA(prices, 50)
	ema200, ok200 := EMA(prices, 200)

	stacked := 0 // +1 bullish stack, -1 bearish stack, 0 mixed/unavailable
	if ok20 && ok50 && ok200 {
		switch {
		case ema20 > ema50 && ema50 > ema200:
			stacked = 1
		case ema20 < ema50 && ema50 < ema200:
			stacked = -1
		}
	} else if ok20 && ok50 {
		switch {
		case ema20 > ema50:
			stacked = 1
		case ema20 < ema50:
			stacked = -1
		}
	}

	atrPct := 0.0
	if price > 0 {
		atrPct = atr / price * 100
	}

	vol20 := priceVolatility(prices, 20)

	var volBucket Volatility
	switch {
	case vol20 < 0.01:
		volBucket = VolLow
	case vol20 < 0.03:
		volBucket = VolMed
	default:
		volBucket = VolHigh
	}

	trendStrength := clamp01(adx / 50.0)

	var regime Regime
	var confidence float64
	switch {
	case stacked > 0 && adx >= 20:
		regime = RegimeBull
		confidence = clampConfidence(50 + adx + float64(boolToInt(volBucket != VolHigh))*10)
	case stacked < 0 && adx >= 20:
		regime = RegimeBear
		confidence = clampConfidence(50 + adx + float64(boolToInt(volBucket != VolHigh))*10)
	default:
		regime = RegimeRanging
		confidence = clampConfidence(60 - adx + float64(boolToInt(volBucket == VolLow))*10)
	}

	var threshold float64
	switch regime {
	case RegimeBull:
		threshold = 60
	case RegimeBear:
		threshold = 75
	default:
		threshold = 80
	}

	return RegimeResult{
		Regime:                        regime,
		Confidence:                    confidence,
		TrendStrength:                 trendStrength * 100,
		Volatility:                    volBucket,
		ATRPct:                        atrPct,
		SuggestedOpportunityThreshold: threshold,
	}
}

// priceVolatility computes the stddev of simple returns over the trailing
// `period` bars, a dimensionless fraction (e.g. 0.02 == 2%).
func priceVolatility(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		period = len(prices) - 1
	}
	if period < 2 {
		return 0
	}
	window := prices[len(prices)-period-1:]
	returns := make([]float64, 0, period)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			continue
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
