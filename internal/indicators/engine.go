package indicators

import (
	"fmt"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

// Engine computes the FeatureVector for one (symbol, timeframe) candle
// series. It holds no state; Compute is safe for concurrent use.
type Engine struct {
	VolumeProfileBins int
}

// NewEngine builds an indicator engine with the default bin count.
func NewEngine() *Engine {
	return &Engine{VolumeProfileBins: VolumeProfileBins}
}

// Compute derives the feature vector for symbol from candles on timeframe
// tf. It requires at least MinWindow candles; shorter windows yield a
// DataInsufficient-style error, per spec §4.4 and §7.
func (e *Engine) Compute(symbol string, tf adapter.Timeframe, candles []adapter.Candle) (FeatureVector, error) {
	if len(candles) < MinWindow {
		return FeatureVector{}, fmt.Errorf("data insufficient: %d candles, need >= %d", len(candles), MinWindow)
	}

	last := candles[len(candles)-1]
	fv := FeatureVector{
		Symbol:    symbol,
		Timestamp: last.Timestamp,
		Price:     last.Close,
	}

	prices := windowPrices(candles)

	if v, ok := PeriodReturn(candles, MomentumShortBars); ok {
		fv.MomentumShort = ptr(v)
	}
	if v, ok := PeriodReturn(candles, MomentumLongBars); ok {
		fv.MomentumLong = ptr(v)
	}
	if bars := int(BarsPerDay(tf) * 7); bars > 0 {
		if v, ok := PeriodReturn(candles, bars); ok {
			fv.Momentum7d = ptr(v)
		}
	}
	if bars := int(BarsPerDay(tf) * 30); bars > 0 {
		if v, ok := PeriodReturn(candles, bars); ok {
			fv.Momentum30d = ptr(v)
		}
	}

	if v, ok := RSI(prices, RSIWindow); ok {
		fv.RSI = ptr(v)
	}
	if k, d, ok := Stochastic(candles, StochWindow); ok {
		fv.StochK = ptr(k)
		fv.StochD = ptr(d)
	}

	if v, ok := MACDHistogram(prices); ok {
		fv.MACDHist = ptr(v)
	}
	for _, spec := range []struct {
		period int
		dst    **float64
	}{
		{5, &fv.EMA5}, {9, &fv.EMA9}, {13, &fv.EMA13},
		{21, &fv.EMA21}, {50, &fv.EMA50}, {200, &fv.EMA200},
	} {
		if v, ok := EMA(prices, spec.period); ok {
			*spec.dst = ptr(v)
		}
	}
	if v, ok := SMA(prices, 20); ok {
		fv.SMA20 = ptr(v)
	}
	if v, ok := SMA(prices, 50); ok {
		fv.SMA50 = ptr(v)
	}

	var adxVal float64
	if v, ok := ADX(candles, ADXWindow); ok {
		fv.ADX = ptr(v)
		adxVal = v
	}

	var atrVal float64
	if v, ok := ATR(candles, ATRWindow); ok {
		fv.ATR = ptr(v)
		atrVal = v
	}
	if upper, middle, lower, width, position, ok := BollingerBands(prices, BBWindow); ok {
		fv.BBUpper = ptr(upper)
		fv.BBMiddle = ptr(middle)
		fv.BBLower = ptr(lower)
		fv.BBWidth = ptr(width)
		fv.BBPosition = ptr(position)
	}

	if v, ok := VolumeRatio(candles); ok {
		fv.VolumeRatio = ptr(v)
	}
	if v, ok := OBV(candles); ok {
		fv.OBV = ptr(v)
	}
	if hist, poc, ok := VolumeProfile(candles, e.VolumeProfileBins); ok {
		fv.VolumeHist = hist
		fv.POCPrice = ptr(poc)
		fv.POCDistance = ptr(POCDistance(fv.Price, poc))
	}
	if v, ok := AnchoredPOC(candles, e.VolumeProfileBins); ok {
		fv.AnchoredPOCPrice = ptr(v)
	}
	if v, ok := FixedRangePOC(candles, e.VolumeProfileBins); ok {
		fv.FixedRangePOC = ptr(v)
	}

	if tenkan, kijun, senkouA, senkouB, cloudGreen, ok := Ichimoku(candles); ok {
		fv.Tenkan = ptr(tenkan)
		fv.Kijun = ptr(kijun)
		fv.SenkouA = ptr(senkouA)
		fv.SenkouB = ptr(senkouB)
		fv.CloudGreen = cloudGreen
		fv.IchimokuBullish = cloudGreen && fv.Price > kijun
	}

	if v, ok := VWAP(candles); ok {
		fv.VWAP = ptr(v)
		fv.VWAPBullish = VWAPBullish(fv.Price, v)
	}

	if fib, ok := Fibonacci(candles); ok {
		fv.FibNearestRetracement = ptr(fib.NearestRetracement)
		fv.FibNearestExtension = ptr(fib.NearestExtension)
		fv.FibDirection = fib.Direction
		fv.FibConfluence = ptr(fib.Confluence)
	}

	if v, ok := TrendScore(prices, 21, adxVal); ok {
		fv.TrendScore = ptr(v)
	}

	regime := ClassifyRegime(candles, fv.Price, adxVal, atrVal)
	fv.Regime = regime.Regime
	fv.RegimeConfidence = regime.Confidence
	fv.TrendStrength = regime.TrendStrength
	fv.Volatility = regime.Volatility
	fv.ATRPct = regime.ATRPct
	fv.SuggestedOpportunityThreshold = regime.SuggestedOpportunityThreshold

	fv.RSIBearishDivergence = detectBearishDivergence(candles, fv.RSI)

	return fv, nil
}

// detectBearishDivergence flags price making a higher high over the last 10
// bars while RSI makes a lower high -- a classic bearish-divergence
// signature consumed by the opportunity score's divergence penalty (§4.5).
func detectBearishDivergence(candles []adapter.Candle, currentRSI *float64) bool {
	const lookback = 10
	if currentRSI == nil || len(candles) < lookback+RSIWindow+1 {
		return false
	}
	window := candles[len(candles)-lookback:]
	// The prior high is the highest bar before the most recent one.
	prior := window[:len(window)-1]
	maxHighIdx := 0
	for i, c := range prior {
		if c.High > prior[maxHighIdx].High {
			maxHighIdx = i
		}
	}
	priorHighEnd := len(candles) - lookback + maxHighIdx + 1
	priorPrices := windowPrices(candles[:priorHighEnd])
	priorRSI, ok := RSI(priorPrices, RSIWindow)
	if !ok {
		return false
	}
	higherHigh := window[len(window)-1].High > window[maxHighIdx].High
	lowerRSIHigh := *currentRSI < priorRSI
	return higherHigh && lowerRSIHigh
}
