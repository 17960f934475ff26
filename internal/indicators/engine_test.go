package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

func buildCandles(n int, start float64, trend float64) []adapter.Candle {
	out := make([]adapter.Candle, n)
	price := start
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		open := price
		close := price + trend
		high := math.Max(open, close) + 0.5
		low := math.Min(open, close) - 0.5
		out[i] = adapter.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + float64(i%7)*10,
		}
		price = close
	}
	return out
}

func TestEngineComputeRequiresMinWindow(t *testing.T) {
	e := NewEngine()
	_, err := e.Compute("BTC/USDT", adapter.TF1h, buildCandles(MinWindow-1, 100, 0.1))
	if err == nil {
		t.Fatal("expected error for series shorter than MinWindow")
	}
}

func TestEngineComputeProducesBoundedFeatures(t *testing.T) {
	e := NewEngine()
	fv, err := e.Compute("BTC/USDT", adapter.TF1h, buildCandles(MinWindow+50, 100, 0.3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.RSI == nil {
		t.Fatal("expected RSI to be populated")
	}
	if *fv.RSI < 0 || *fv.RSI > 100 {
		t.Fatalf("RSI out of bounds: %v", *fv.RSI)
	}
	if fv.BBPosition != nil && (*fv.BBPosition < 0 || *fv.BBPosition > 1) {
		t.Fatalf("bb_position out of bounds: %v", *fv.BBPosition)
	}
	if fv.Regime == "" {
		t.Fatal("expected regime to be classified")
	}
}

func TestRSINoLossesIsHundred(t *testing.T) {
	prices := make([]float64, RSIWindow+5)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	v, ok := RSI(prices, RSIWindow)
	if !ok {
		t.Fatal("expected valid RSI")
	}
	if v != 100.0 {
		t.Fatalf("expected RSI=100 with no losses, got %v", v)
	}
}

func TestBollingerPositionClampedAndMidpointWhenFlat(t *testing.T) {
	prices := make([]float64, BBWindow)
	for i := range prices {
		prices[i] = 50.0 // perfectly flat -> upper == lower
	}
	upper, _, lower, _, position, ok := BollingerBands(prices, BBWindow)
	if !ok {
		t.Fatal("expected valid bollinger bands")
	}
	if upper != lower {
		t.Fatalf("expected flat series to produce upper==lower, got %v vs %v", upper, lower)
	}
	if position != 0.5 {
		t.Fatalf("expected bb_position=0.5 for flat series, got %v", position)
	}
}

func TestADXBounded(t *testing.T) {
	candles := buildCandles(ADXWindow*3, 100, 0.5)
	v, ok := ADX(candles, ADXWindow)
	if !ok {
		t.Fatal("expected valid ADX")
	}
	if v < 0 || v > 100 {
		t.Fatalf("ADX out of bounds: %v", v)
	}
}

func TestFibonacciDirectionMatchesSwingOrder(t *testing.T) {
	// Construct a clean down-then-up swing: low first, high later => bull.
	candles := make([]adapter.Candle, 0, 20)
	base := time.Now().Add(-20 * time.Hour)
	prices := []float64{100, 90, 80, 85, 95, 110, 120, 115}
	for i, p := range prices {
		candles = append(candles, adapter.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      p, High: p + 1, Low: p - 1, Close: p, Volume: 100,
		})
	}
	res, ok := Fibonacci(candles)
	if !ok {
		t.Fatal("expected valid fibonacci result")
	}
	if res.Direction != FibBull {
		t.Fatalf("expected bull direction for low-then-high swing, got %v", res.Direction)
	}
}
