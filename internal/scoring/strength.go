package scoring

import "math"

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Strength computes signal strength in [0,100]: a base of 50 adjusted by
// momentum magnitude/sign, an RSI band bonus/penalty, MACD magnitude/sign,
// and a volume-ratio nudge, per spec §4.5.
func Strength(momentumShort, momentumLong, rsi, macd, volumeRatio float64) float64 {
	score := 50.0

	momentumScore := minF(math.Abs(momentumShort)*1000, 15) + minF(math.Abs(momentumLong)*500, 15)
	if momentumShort > 0 && momentumLong > 0 {
		score += momentumScore
	} else {
		score -= momentumScore
	}

	switch {
	case rsi > 40 && rsi < 60:
		score += 5
	case rsi > 70 || rsi < 30:
		score -= 10
	}

	macdAdj := minF(math.Abs(macd)*50, 10)
	if macd > 0 {
		score += macdAdj
	} else {
		score -= macdAdj
	}

	switch {
	case volumeRatio > 1.2:
		score += 5
	case volumeRatio < 0.8:
		score -= 3
	}

	return clamp(score, 0, 100)
}
