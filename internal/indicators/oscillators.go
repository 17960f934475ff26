package indicators

import "github.com/sawpanic/marketscanner/internal/adapter"

// RSIWindow is the standard RSI period (spec §3).
const RSIWindow = 14

// RSI computes Wilder's Relative Strength Index over the given window.
// Grounded on the teacher's CalculateRSI (SMA seed, then Wilder/EMA
// smoothing with alpha=1/period). If there are no losses in the window the
// result is 100, per spec §4.4.
func RSI(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}
	changes := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		changes[i-1] = prices[i] - prices[i-1]
	}

	gains := make([]float64, len(changes))
	losses := make([]float64, len(changes))
	for i, ch := range changes {
		if ch > 0 {
			gains[i] = ch
		} else {
			losses[i] = -ch
		}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(changes); i++ {
		avgGain = avgGain*(1-alpha) + gains[i]*alpha
		avgLoss = avgLoss*(1-alpha) + losses[i]*alpha
	}

	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs)), true
}

// StochWindow is the standard stochastic-oscillator lookback (spec §3).
const StochWindow = 14

// Stochastic computes %K (raw) and %D (3-bar SMA of %K) over the window.
func Stochastic(candles []adapter.Candle, period int) (k, d float64, ok bool) {
	if len(candles) < period+3 {
		return 0, 0, false
	}
	kValues := make([]float64, 0, len(candles)-period+1)
	for end := period; end <= len(candles); end++ {
		window := candles[end-period : end]
		hi, lo := window[0].High, window[0].Low
		for _, c := range window {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}
		close := window[len(window)-1].Close
		if hi == lo {
			kValues = append(kValues, 50.0)
			continue
		}
		kValues = append(kValues, 100.0*(close-lo)/(hi-lo))
	}
	if len(kValues) == 0 {
		return 0, 0, false
	}
	k = kValues[len(kValues)-1]

	dWindow := 3
	if len(kValues) < dWindow {
		dWindow = len(kValues)
	}
	sum := 0.0
	for _, v := range kValues[len(kValues)-dWindow:] {
		sum += v
	}
	d = sum / float64(dWindow)
	return k, d, true
}
