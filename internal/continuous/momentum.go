package continuous

import (
	"math"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// MomentumResult is the L2 loop's enhanced-momentum sub-score, grounded on
// original_source/continuous_scanner.py's _detect_enhanced_momentum: an
// unsigned magnitude on [0,100], cluster-boosted when the candle-cluster
// pass confirms a trend formation, with direction carried separately as
// PriceChangePct's sign (the source's classify/direction split).
type MomentumResult struct {
	Score            float64
	PriceChangePct   float64
	VolumeRatio      float64
	ClusterValidated bool
}

// MomentumSubScore computes the last-20-bar momentum magnitude:
// abs(price_change over 10 bars) * volume_ratio(last5/mean20) * 100,
// boosted by (1+cluster.Strength) when cluster confirms a trend
// formation with strength > 0.5, capped at 100. Matches
// _detect_enhanced_momentum exactly.
func MomentumSubScore(candles []adapter.Candle, cluster ClusterResult) MomentumResult {
	n := len(candles)
	if n < 20 {
		return MomentumResult{}
	}
	window := candles[n-20:]

	priceChange := (window[19].Close - window[10].Close) / window[10].Close

	recentVolume := meanVolume(window[15:])
	avgVolume := meanVolume(window)
	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = recentVolume / avgVolume
	}

	score := math.Abs(priceChange) * volumeRatio * 100

	clusterValidated := cluster.TrendFormation && cluster.Strength > 0.5
	if clusterValidated {
		score *= 1 + cluster.Strength
	}
	if score > 100 {
		score = 100
	}

	return MomentumResult{
		Score:            score,
		PriceChangePct:   priceChange * 100,
		VolumeRatio:      volumeRatio,
		ClusterValidated: clusterValidated,
	}
}

// CategoricalSignal is L2's derived label, per spec §4.7's enum.
type CategoricalSignal string

const (
	SignalMomentumBuy   CategoricalSignal = "MOMENTUM_BUY"
	SignalMomentumSell  CategoricalSignal = "MOMENTUM_SELL"
	SignalReversionBull CategoricalSignal = "REVERSION_BULLISH"
	SignalReversionBear CategoricalSignal = "REVERSION_BEARISH"
	SignalStrongBuy     CategoricalSignal = "STRONG_BUY"
	SignalStrongSell    CategoricalSignal = "STRONG_SELL"
	SignalWeakBuy       CategoricalSignal = "WEAK_BUY"
	SignalWeakSell      CategoricalSignal = "WEAK_SELL"
	SignalNeutral       CategoricalSignal = "NEUTRAL"
)

// ClassifySignal derives the categorical label, grounded on
// _determine_signal_type's exact priority ladder: a strong, unconfirmed-
// reversion momentum reading wins outright; otherwise an active reversion
// candidate wins; otherwise combined_score buckets into strong/weak;
// direction always comes from the raw price_change_pct sign, never from
// the momentum or combined score itself.
func ClassifySignal(momentum MomentumResult, combined float64, rev ReversionResult) CategoricalSignal {
	bullish := momentum.PriceChangePct > 0

	switch {
	case momentum.Score > 70 && !rev.Candidate:
		if bullish {
			return SignalMomentumBuy
		}
		return SignalMomentumSell
	case rev.Candidate:
		if rev.Bearish {
			return SignalReversionBear
		}
		return SignalReversionBull
	case combined > 60:
		if bullish {
			return SignalStrongBuy
		}
		return SignalStrongSell
	case combined > 40:
		if bullish {
			return SignalWeakBuy
		}
		return SignalWeakSell
	default:
		return SignalNeutral
	}
}
