package scoring

import "fmt"

// PositionSize is the risk-managed position-sizing advisory, per spec §4.5.
type PositionSize struct {
	PositionValue    float64
	Units            float64
	MarginRequired   float64
	RiskAmountUSD    float64
	TotalFees        float64
	StopDistancePct  float64
	Leverage         float64
	AccountBalance   float64
	RiskPerTradePct  float64
	MarginUsagePct   float64
	Warnings         []string
	SafeToTrade      bool
}

// CalculatePositionSize derives risk_usd, position_value, units, and fees
// from account balance, risk percentage, entry/stop, leverage, and fee
// rate, per spec §4.5: risk_usd = balance*risk_pct; position_value =
// risk_usd / stop_distance_pct * leverage; units = position_value / entry;
// fees = 2*fee_rate*position_value.
func CalculatePositionSize(accountBalance, riskPerTradePct, entryPrice, stopLoss, leverage, feeRate float64) PositionSize {
	riskAmountUSD := accountBalance * (riskPerTradePct / 100)
	stopDistancePct := abs((entryPrice - stopLoss) / entryPrice)

	basePositionSize := riskAmountUSD / stopDistancePct
	positionValue := basePositionSize * leverage
	units := positionValue / entryPrice
	totalFees := 2 * feeRate * positionValue
	marginRequired := positionValue / leverage

	var warnings []string
	if marginRequired > accountBalance {
		warnings = append(warnings, "Insufficient balance for this position")
	}
	if marginRequired > accountBalance*0.5 {
		warnings = append(warnings, "Position uses >50% of account (high risk)")
	}
	if leverage > 3 {
		warnings = append(warnings, fmt.Sprintf("High leverage (%gx) - increased liquidation risk", leverage))
	}
	if riskPerTradePct > 3 {
		warnings = append(warnings, fmt.Sprintf("Risking %g%% per trade (recommended: 1-2%%)", riskPerTradePct))
	}

	safe := true
	for _, w := range warnings {
		if w == "Insufficient balance for this position" {
			safe = false
		}
	}

	return PositionSize{
		PositionValue:   positionValue,
		Units:           units,
		MarginRequired:  marginRequired,
		RiskAmountUSD:   riskAmountUSD,
		TotalFees:       totalFees,
		StopDistancePct: stopDistancePct * 100,
		Leverage:        leverage,
		AccountBalance:  accountBalance,
		RiskPerTradePct: riskPerTradePct,
		MarginUsagePct:  marginRequired / accountBalance * 100,
		Warnings:        warnings,
		SafeToTrade:     safe,
	}
}
