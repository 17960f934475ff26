package indicators

import "github.com/sawpanic/marketscanner/internal/adapter"

// Ichimoku periods per spec §4.4 (standard 9/26/52 definitions).
const (
	TenkanPeriod = 9
	KijunPeriod  = 26
	SenkouBPeriod = 52
)

func midpointHighLow(candles []adapter.Candle, period int) (float64, bool) {
	if len(candles) < period {
		return 0, false
	}
	window := candles[len(candles)-period:]
	hi, lo := window[0].High, window[0].Low
	for _, c := range window {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}
	return (hi + lo) / 2, true
}

// Ichimoku computes tenkan, kijun, senkou A/B, and the cloud_green flag
// (Senkou A > Senkou B).
func Ichimoku(candles []adapter.Candle) (tenkan, kijun, senkouA, senkouB float64, cloudGreen, ok bool) {
	tenkan, okT := midpointHighLow(candles, TenkanPeriod)
	kijun, okK := midpointHighLow(candles, KijunPeriod)
	senkouB, okB := midpointHighLow(candles, SenkouBPeriod)
	if !okT || !okK || !okB {
		return 0, 0, 0, 0, false, false
	}
	senkouA = (tenkan + kijun) / 2
	cloudGreen = senkouA > senkouB
	return tenkan, kijun, senkouA, senkouB, cloudGreen, true
}
