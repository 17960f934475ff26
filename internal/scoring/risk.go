package scoring

import "math"

// DefaultRiskRewardRatio is the reward multiple applied to risk when no
// resistance/support-based target beats it (spec §4.5).
const DefaultRiskRewardRatio = 2.5

// RiskAdvisory is the stop-loss/take-profit advisory for one signal, per
// spec §4.5.
type RiskAdvisory struct {
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	RiskAmount      float64
	RewardAmount    float64
	RiskRewardRatio float64
	StopLossPct     float64
	TakeProfitPct   float64
	SupportLevel    *float64
	ResistanceLevel *float64
}

// validStopDistance reports whether a candidate stop sits strictly between
// 0.5% and 8% away from price, the "not too tight, not too far" band from
// spec §4.5.
func validStopDistance(distance float64) bool {
	return distance > 0.005 && distance < 0.08
}

// CalculateRisk derives the stop-loss/take-profit advisory for a signal
// label. support/resistance fall back to the Bollinger lower/upper bands
// when nil. isBuy selects the long-side formulas; isSell the short-side;
// neither (Neutral) yields a symmetric ±3% band.
func CalculateRisk(price, atr float64, bbLower, bbUpper, support, resistance *float64, isBuy, isSell bool) RiskAdvisory {
	supportLevel := bbLower
	if support != nil {
		supportLevel = support
	}
	resistanceLevel := bbUpper
	if resistance != nil {
		resistanceLevel = resistance
	}

	var stopLoss, takeProfit, riskAmount, actualRR float64

	switch {
	case isBuy:
		atrStop := price - atr*1.5
		supportStop := price * 0.97
		if supportLevel != nil {
			supportStop = *supportLevel * 0.995
		}
		percentStop := price * 0.97

		candidates := []float64{atrStop, supportStop, percentStop}
		best, found := atrStop, false
		for _, c := range candidates {
			if validStopDistance((price - c) / price) {
				if !found || c > best {
					best = c
				}
				found = true
			}
		}
		stopLoss = best

		riskAmount = price - stopLoss
		rewardByRR := price + riskAmount*DefaultRiskRewardRatio
		if resistanceLevel != nil {
			resistanceTP := *resistanceLevel * 0.995
			if resistanceTP > price && resistanceTP < rewardByRR {
				takeProfit = resistanceTP
				actualRR = (takeProfit - price) / riskAmount
				break
			}
		}
		takeProfit = rewardByRR
		actualRR = DefaultRiskRewardRatio

	case isSell:
		atrStop := price + atr*1.5
		resistanceStop := price * 1.03
		if resistanceLevel != nil {
			resistanceStop = *resistanceLevel * 1.005
		}
		percentStop := price * 1.03

		candidates := []float64{atrStop, resistanceStop, percentStop}
		best, found := atrStop, false
		for _, c := range candidates {
			if validStopDistance((c - price) / price) {
				if !found || c < best {
					best = c
				}
				found = true
			}
		}
		stopLoss = best

		riskAmount = stopLoss - price
		rewardByRR := price - riskAmount*DefaultRiskRewardRatio
		if supportLevel != nil {
			supportTP := *supportLevel * 1.005
			if supportTP < price && supportTP > rewardByRR {
				takeProfit = supportTP
				actualRR = (price - takeProfit) / riskAmount
				break
			}
		}
		takeProfit = rewardByRR
		actualRR = DefaultRiskRewardRatio

	default:
		stopLoss = price * 0.97
		takeProfit = price * 1.03
		riskAmount = price - stopLoss
		if riskAmount > 0 {
			actualRR = (takeProfit - price) / riskAmount
		}
	}

	return RiskAdvisory{
		EntryPrice:      price,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		RiskAmount:      math.Abs(price - stopLoss),
		RewardAmount:    math.Abs(takeProfit - price),
		RiskRewardRatio: actualRR,
		StopLossPct:     (stopLoss - price) / price * 100,
		TakeProfitPct:   (takeProfit - price) / price * 100,
		SupportLevel:    supportLevel,
		ResistanceLevel: resistanceLevel,
	}
}
