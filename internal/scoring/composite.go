package scoring

import "math"

// CompositeWeights are the eight component weights for Composite (spec
// §4.5). They need not sum to 1; the result is rescaled to [0,100].
type CompositeWeights struct {
	MomentumShort float64
	MomentumLong  float64
	RSI           float64
	MACD          float64
	TrendScore    float64
	VolumeRatio   float64
	Ichimoku      float64
	FibConfluence float64
}

// DefaultCompositeWeights mirrors the source's weight table.
func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{
		MomentumShort: 0.20,
		MomentumLong:  0.15,
		RSI:           0.20,
		MACD:          0.15,
		TrendScore:    0.20,
		VolumeRatio:   0.10,
		Ichimoku:      0.10,
		FibConfluence: 0.15,
	}
}

// Composite blends momentum, RSI distance-from-50, MACD, trend quality,
// volume ratio, Ichimoku, and Fibonacci confluence into a single [0,100]
// score, per spec §4.5. trendScore is on the 0-10 indicators.TrendScore
// scale; fibConfluence is already on [0,100].
func Composite(momentumShort, momentumLong, rsi, macd, trendScore, volumeRatio, fibConfluence float64, ichimokuBullish bool, w CompositeWeights) float64 {
	momShortScore := clamp(math.Abs(momentumShort)*1000, 0, 1)
	momLongScore := clamp(math.Abs(momentumLong)*500, 0, 1)

	var rsiScore float64
	if rsi >= 50 {
		rsiScore = clamp((rsi-50)/30, 0, 1)
	} else {
		rsiScore = clamp((50-rsi)/30, 0, 1)
	}

	macdScore := clamp(math.Abs(macd)*50, 0, 1)
	trendNorm := clamp(trendScore/10, 0, 1)
	volScore := clamp((volumeRatio-1)/1.5, 0, 1)
	ichimokuScore := 0.0
	if ichimokuBullish {
		ichimokuScore = 1.0
	}
	fibScore := clamp(fibConfluence/100, 0, 1)

	score := momShortScore*w.MomentumShort +
		momLongScore*w.MomentumLong +
		rsiScore*w.RSI +
		macdScore*w.MACD +
		trendNorm*w.TrendScore +
		volScore*w.VolumeRatio +
		ichimokuScore*w.Ichimoku +
		fibScore*w.FibConfluence

	total := w.MomentumShort + w.MomentumLong + w.RSI + w.MACD +
		w.TrendScore + w.VolumeRatio + w.Ichimoku + w.FibConfluence
	if total > 0 {
		score /= total
	}
	return score * 100
}

// VolumeComposite blends volume ratio, the dominant volume-profile bin
// share, and POC proximity into a [0,100] score, per spec §4.5.
func VolumeComposite(volumeRatio float64, volumeHist []float64, pocDistance float64) float64 {
	volRatioScore := clamp((volumeRatio-1)/1.5, 0, 1)

	histScore := 0.0
	if len(volumeHist) > 0 {
		sum, max := 0.0, volumeHist[0]
		for _, v := range volumeHist {
			sum += v
			if v > max {
				max = v
			}
		}
		if sum > 0 {
			histScore = clamp(max/sum, 0, 1)
		}
	}

	pocScore := clamp(1-math.Abs(pocDistance)/0.05, 0, 1)

	const wVolRatio, wHist, wPOC = 0.5, 0.3, 0.2
	score := volRatioScore*wVolRatio + histScore*wHist + pocScore*wPOC
	return score * 100
}
