package scan

import (
	"fmt"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/indicators"
	"github.com/sawpanic/marketscanner/internal/scoring"
)

// Analyzer turns a candle series into a scored Signal. It holds no mutable
// state beyond its configured weights/thresholds and is safe for
// concurrent use across symbols -- the CPU-bound counterpart to the I/O
// bound Gate, per spec §5's "two pools" design note.
type Analyzer struct {
	Engine  *indicators.Engine
	Weights scoring.CompositeWeights
}

// NewAnalyzer builds an analyzer with the default indicator engine and
// composite weights.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Engine:  indicators.NewEngine(),
		Weights: scoring.DefaultCompositeWeights(),
	}
}

// Analyze computes the full feature vector and scoring pipeline for one
// symbol/timeframe's candle series. It returns an error (never panics)
// when the series is shorter than indicators.MinWindow -- callers drop the
// row per spec §4.4/§7 ("DataInsufficient ... signal row dropped").
func (a *Analyzer) Analyze(symbol adapter.Symbol, marketType adapter.MarketType, tf adapter.Timeframe, candles []adapter.Candle) (Signal, error) {
	fv, err := a.Engine.Compute(symbol.String(), tf, candles)
	if err != nil {
		return Signal{}, fmt.Errorf("analyze %s: %w", symbol, err)
	}

	th := scoring.DefaultThresholds(marketType, tf)
	label := scoring.ClassifyLabel(fv, th)

	momShort := orZero(fv.MomentumShort)
	momLong := orZero(fv.MomentumLong)
	mom7d := orZero(fv.Momentum7d)
	mom30d := orZero(fv.Momentum30d)
	rsi := orDefault(fv.RSI, 50)
	macd := orZero(fv.MACDHist)
	volRatio := orDefault(fv.VolumeRatio, 1)
	trendScore := orZero(fv.TrendScore)
	fibConfluence := orZero(fv.FibConfluence)

	state := scoring.ClassifyState(mom7d, mom30d, rsi, macd, orDefault(fv.BBPosition, 0.5), volRatio)
	strength := scoring.Strength(momShort, momLong, rsi, macd, volRatio)
	composite := scoring.Composite(momShort, momLong, rsi, macd, trendScore, volRatio, fibConfluence, fv.IchimokuBullish, a.Weights)
	volComposite := scoring.VolumeComposite(volRatio, fv.VolumeHist, orZero(fv.POCDistance))

	opportunity := scoring.Opportunity(scoring.OpportunityInputs{
		MomentumShort: momShort,
		MomentumLong:  momLong,
		RSI:           rsi,
		MACD:          macd,
		BBPosition:    fv.BBPosition,
		TrendScore:    trendScore,
		VolumeRatio:   volRatio,
		StochK:        fv.StochK,
		RSIBearishDiv: fv.RSIBearishDivergence,
	})

	combined := scoring.Combined(opportunity, composite, volComposite, strength)

	isBuy := label == scoring.LabelStrongBuy || label == scoring.LabelBuy || label == scoring.LabelWeakBuy
	isSell := label == scoring.LabelStrongSell || label == scoring.LabelSell || label == scoring.LabelWeakSell
	risk := scoring.CalculateRisk(fv.Price, orZero(fv.ATR), fv.BBLower, fv.BBUpper, nil, nil, isBuy, isSell)

	return Signal{
		Symbol:           symbol,
		Timeframe:        tf,
		Price:            fv.Price,
		Change24h:        momShort,
		Volume:           volRatio,
		Label:            label,
		State:            state,
		Strength:         strength,
		CompositeScore:   composite,
		VolumeComposite:  volComposite,
		OpportunityScore: opportunity,
		CombinedScore:    combined,
		Risk:             risk,
		Regime:           fv.Regime,
		RegimeConfidence: fv.RegimeConfidence,
		TrendStrength:    fv.TrendStrength,
		Volatility:       fv.Volatility,
		SuggestedThresh:  fv.SuggestedOpportunityThreshold,
		IchimokuBullish:  fv.IchimokuBullish,
		VWAPBullish:      fv.VWAPBullish,
		BBPosition:       fv.BBPosition,
		RSI:              fv.RSI,
		MACDHist:         fv.MACDHist,
		EMA21:            fv.EMA21,
		Timestamp:        fv.Timestamp,
	}, nil
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
