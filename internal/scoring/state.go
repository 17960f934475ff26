package scoring

// State is the legacy volatility-scaled categorical signal state from
// spec §4.5, kept for backward compatibility with older signal consumers.
type State string

const (
	StateConsistentUptrend State = "Consistent Uptrend"
	StateNewSpike          State = "New Spike"
	StateToppingOut        State = "Topping Out"
	StateLagging           State = "Lagging"
	StateModerateUptrend   State = "Moderate Uptrend"
	StatePotentialReversal State = "Potential Reversal"
	StateConsolidation     State = "Consolidation"
	StateWeakUptrend       State = "Weak Uptrend"
	StateOverbought        State = "Overbought"
	StateOversold          State = "Oversold"
	StateMACDBullish       State = "MACD Bullish"
	StateMACDBearish       State = "MACD Bearish"
	StateNeutral           State = "Neutral"
)

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ClassifyState derives the legacy signal state from (mom7d, mom30d, rsi,
// macd, bb_position, volume_ratio), volatility-scaled by clamping
// volume_ratio to [0.5, 2.0]. Predicates are tried in the order below;
// the first match wins.
func ClassifyState(mom7d, mom30d, rsi, macd, bbPosition, volumeRatio float64) State {
	volMult := volumeRatio
	if volMult < 0.5 {
		volMult = 0.5
	}
	if volMult > 2.0 {
		volMult = 2.0
	}
	thHigh := 0.07 * volMult
	thMed := 0.035 * volMult
	thLow := 0.015 * volMult

	switch {
	case mom7d > thMed && mom30d > thHigh && mom7d < 0.5*mom30d:
		return StateConsistentUptrend
	case mom7d > thHigh && abs(mom30d) < thMed:
		return StateNewSpike
	case mom7d < -thMed && mom30d > thHigh && bbPosition > 0.80 && rsi > 65:
		return StateToppingOut
	case abs(mom7d) < thLow && abs(mom30d) < thMed:
		return StateLagging
	case mom7d > thLow && mom7d < thHigh && mom30d > thMed && mom30d < thHigh:
		return StateModerateUptrend
	case mom7d > thMed && mom30d < -thMed && rsi < 45:
		return StatePotentialReversal
	case abs(mom7d) < thLow && abs(mom30d) < thLow && rsi >= 40 && rsi <= 60:
		return StateConsolidation
	case mom7d > thLow && abs(mom30d) < thLow:
		return StateWeakUptrend
	case rsi > 75 && mom7d > thMed:
		return StateOverbought
	case rsi < 25 && mom7d < -thMed:
		return StateOversold
	case macd > 0 && mom7d > thMed:
		return StateMACDBullish
	case macd < 0 && mom7d < -thMed:
		return StateMACDBearish
	default:
		return StateNeutral
	}
}
