package continuous

import (
	"math"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/indicators"
)

// ReversionResult is the smart mean-reversion sub-score from spec §4.7,
// plus the flags that derive it (surfaced for explainability/logging).
type ReversionResult struct {
	Score              float64
	MomentumExhaustion bool
	VolumeExhaustion   bool
	ExcessiveGain      bool
	RSIExtreme         bool
	Bearish            bool
	Candidate          bool
}

// Reversion computes the smart mean-reversion sub-score over the last 10
// closes, per spec §4.7: four boolean flags, score = 100*(flags/4),
// direction bearish when the last-5-bar return is positive.
func Reversion(candles []adapter.Candle) ReversionResult {
	n := len(candles)
	if n < 20 {
		return ReversionResult{}
	}

	last10 := candles[n-10:]
	consecutive := 0
	best := 0
	sign := 0
	for i := 1; i < len(last10); i++ {
		ret := (last10[i].Close - last10[i-1].Close) / last10[i-1].Close
		if math.Abs(ret) <= 0.001 {
			consecutive = 0
			sign = 0
			continue
		}
		s := 1
		if ret < 0 {
			s = -1
		}
		if s == sign {
			consecutive++
		} else {
			sign = s
			consecutive = 1
		}
		if consecutive > best {
			best = consecutive
		}
	}
	momentumExhaustion := best >= 4

	last3Vol := meanVolume(candles[n-3:])
	windowVol := meanVolume(candles[n-20:])
	vol3Start := meanVolume(candles[n-6 : n-3])
	volumeTrend := 0.0
	if vol3Start > 0 {
		volumeTrend = (last3Vol - vol3Start) / vol3Start
	}
	volumeExhaustion := last3Vol > 1.5*windowVol && volumeTrend < -0.10

	last5Return := (candles[n-1].Close - candles[n-5].Close) / candles[n-5].Close
	excessiveGain := last5Return > 0.15

	rsiExtreme := false
	prices := make([]float64, n)
	for i, c := range candles {
		prices[i] = c.Close
	}
	if rsi, ok := indicators.RSI(prices, indicators.RSIWindow); ok {
		rsiExtreme = rsi > 70 || rsi < 30
	}

	flags := 0
	for _, f := range []bool{momentumExhaustion, volumeExhaustion, excessiveGain, rsiExtreme} {
		if f {
			flags++
		}
	}

	score := 100 * float64(flags) / 4

	return ReversionResult{
		Score:              score,
		MomentumExhaustion: momentumExhaustion,
		VolumeExhaustion:   volumeExhaustion,
		ExcessiveGain:      excessiveGain,
		RSIExtreme:         rsiExtreme,
		Bearish:            last5Return > 0,
		// Candidate mirrors the source's 'reversion_candidate': score > 50,
		// per _detect_smart_mean_reversion.
		Candidate: score > 50,
	}
}

func meanVolume(candles []adapter.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}
