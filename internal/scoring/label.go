package scoring

import "github.com/sawpanic/marketscanner/internal/indicators"

// Label is the categorical signal label from spec §3/§4.5.
type Label string

const (
	LabelStrongBuy  Label = "Strong Buy"
	LabelBuy        Label = "Buy"
	LabelWeakBuy    Label = "Weak Buy"
	LabelNeutral    Label = "Neutral"
	LabelWeakSell   Label = "Weak Sell"
	LabelSell       Label = "Sell"
	LabelStrongSell Label = "Strong Sell"
)

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func orNeutralRSI(p *float64) float64 {
	if p == nil {
		return 50
	}
	return *p
}

// ClassifyLabel applies the exact rules of spec §4.5 against the
// (market-type, timeframe) thresholds. Strong Buy requires IchimokuBullish
// and Strong Sell requires it false; the VWAP and divergence flags are not
// consulted. Absent momentum/RSI/MACD fields are treated as neutral (0, 50,
// 0 respectively), per spec §4.4 "the downstream scorer treats absent
// fields as neutral".
func ClassifyLabel(fv indicators.FeatureVector, th Thresholds) Label {
	momShort := orZero(fv.MomentumShort)
	momLong := orZero(fv.MomentumLong)
	rsi := orNeutralRSI(fv.RSI)
	macd := orZero(fv.MACDHist)

	switch {
	case momShort > 2*th.MomentumThreshold && momLong > th.MomentumThreshold &&
		rsi > th.RSIMin && rsi < th.RSIMax && macd > th.MACDMin && fv.IchimokuBullish:
		return LabelStrongBuy
	case momShort < -2*th.MomentumThreshold && momLong < -th.MomentumThreshold &&
		// classify_momentum_signal hardcodes "rsi > 20" for Strong Sell
		// regardless of rsi_max; not derived from th.RSIMax.
		rsi < (100-th.RSIMin) && rsi > 20 && macd < -th.MACDMin && !fv.IchimokuBullish:
		return LabelStrongSell
	case momShort > th.MomentumThreshold && rsi > th.RSIMin && macd > 0:
		return LabelBuy
	case momShort < -th.MomentumThreshold && rsi < (100-th.RSIMin) && macd < 0:
		return LabelSell
	case momShort > 0 && rsi > 45 && macd > 0:
		return LabelWeakBuy
	case momShort < 0 && rsi < 55 && macd < 0:
		return LabelWeakSell
	default:
		return LabelNeutral
	}
}

// WireSignal maps the internal Label to the stable BUY/SELL/HOLD wire
// contract of spec §6.
func (l Label) WireSignal() string {
	switch l {
	case LabelStrongBuy, LabelBuy, LabelWeakBuy:
		return "BUY"
	case LabelStrongSell, LabelSell, LabelWeakSell:
		return "SELL"
	default:
		return "HOLD"
	}
}
