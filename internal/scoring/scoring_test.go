package scoring

import (
	"math"
	"testing"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/indicators"
)

func f(v float64) *float64 { return &v }

func near(a, b, eps float64) bool { return math.Abs(a-b) < eps }

func TestStrengthClampsToRange(t *testing.T) {
	cases := []struct {
		name                                    string
		momShort, momLong, rsi, macd, volRatio float64
	}{
		{"extreme bullish", 0.2, 0.2, 80, 5, 3},
		{"extreme bearish", -0.2, -0.2, 10, -5, 0.1},
		{"neutral", 0, 0, 50, 0, 1},
	}
	for _, c := range cases {
		got := Strength(c.momShort, c.momLong, c.rsi, c.macd, c.volRatio)
		if got < 0 || got > 100 {
			t.Errorf("%s: Strength() = %v, want in [0,100]", c.name, got)
		}
	}
}

func TestStrengthNeutralBaseline(t *testing.T) {
	// rsi=50 hits the 40-60 bonus band (+5); everything else is zero.
	got := Strength(0, 0, 50, 0, 1)
	want := 55.0
	if !near(got, want, 1e-9) {
		t.Errorf("Strength(neutral) = %v, want %v", got, want)
	}
}

func TestCompositeWithinRange(t *testing.T) {
	w := DefaultCompositeWeights()
	got := Composite(0.01, 0.02, 65, 1.0, 8, 1.8, 80, true, w)
	if got < 0 || got > 100 {
		t.Errorf("Composite() = %v, want in [0,100]", got)
	}
}

func TestVolumeCompositeWithinRange(t *testing.T) {
	got := VolumeComposite(1.8, []float64{1, 2, 10, 3}, 0.01)
	if got < 0 || got > 100 {
		t.Errorf("VolumeComposite() = %v, want in [0,100]", got)
	}
}

// TestCombinedInvariant is universal invariant #1 from spec §8: the
// combined score must equal the weighted blend within 1e-6.
func TestCombinedInvariant(t *testing.T) {
	opportunity, composite, volumeComposite, strength := 72.0, 55.0, 40.0, 63.0
	got := Combined(opportunity, composite, volumeComposite, strength)
	want := 0.50*opportunity + 0.25*composite + 0.15*volumeComposite + 0.10*strength
	if !near(got, want, 1e-6) {
		t.Errorf("Combined() = %v, want %v", got, want)
	}
}

func TestClassifyLabelStrongBuyRequiresAllGates(t *testing.T) {
	th := DefaultThresholds(adapter.MarketSpot, adapter.TF1h)
	fv := indicators.FeatureVector{
		MomentumShort:   f(2*th.MomentumThreshold + 0.001),
		MomentumLong:    f(th.MomentumThreshold + 0.001),
		RSI:             f(60),
		MACDHist:        f(th.MACDMin + 0.01),
		IchimokuBullish: true,
	}
	if got := ClassifyLabel(fv, th); got != LabelStrongBuy {
		t.Errorf("ClassifyLabel() = %v, want %v", got, LabelStrongBuy)
	}

	// Drop the Ichimoku gate: must fall through to a weaker label, never
	// Strong Buy, since the rule requires ichimoku_bullish.
	fv.IchimokuBullish = false
	if got := ClassifyLabel(fv, th); got == LabelStrongBuy {
		t.Errorf("ClassifyLabel() = %v, want anything but Strong Buy without Ichimoku gate", got)
	}
}

func TestClassifyLabelNeutralOnAbsentFields(t *testing.T) {
	th := DefaultThresholds(adapter.MarketSpot, adapter.TF1h)
	fv := indicators.FeatureVector{} // every pointer nil
	if got := ClassifyLabel(fv, th); got != LabelNeutral {
		t.Errorf("ClassifyLabel(absent) = %v, want %v", got, LabelNeutral)
	}
}

func TestClassifyLabelWeakBuy(t *testing.T) {
	th := DefaultThresholds(adapter.MarketSpot, adapter.TF1h)
	fv := indicators.FeatureVector{
		MomentumShort: f(0.0001),
		RSI:           f(46),
		MACDHist:      f(0.01),
	}
	if got := ClassifyLabel(fv, th); got != LabelWeakBuy {
		t.Errorf("ClassifyLabel() = %v, want %v", got, LabelWeakBuy)
	}
}

func TestClassifyLabelIdempotent(t *testing.T) {
	// Universal invariant #8: classifying the same vector twice yields the
	// same label.
	th := DefaultThresholds(adapter.MarketFuture, adapter.TF4h)
	fv := indicators.FeatureVector{
		MomentumShort: f(0.03),
		MomentumLong:  f(0.01),
		RSI:           f(58),
		MACDHist:      f(0.2),
	}
	first := ClassifyLabel(fv, th)
	second := ClassifyLabel(fv, th)
	if first != second {
		t.Errorf("ClassifyLabel not idempotent: %v != %v", first, second)
	}
}

func TestWireSignalMapping(t *testing.T) {
	cases := map[Label]string{
		LabelStrongBuy:  "BUY",
		LabelBuy:        "BUY",
		LabelWeakBuy:    "BUY",
		LabelNeutral:    "HOLD",
		LabelWeakSell:   "SELL",
		LabelSell:       "SELL",
		LabelStrongSell: "SELL",
	}
	for label, want := range cases {
		if got := label.WireSignal(); got != want {
			t.Errorf("%s.WireSignal() = %v, want %v", label, got, want)
		}
	}
}

func TestClassifyStateFirstMatchWins(t *testing.T) {
	// volRatio=1 -> thLow=0.015, thMed=0.035, thHigh=0.07.
	// mom7d=0.05 > thMed, mom30d=0.1 > thHigh, and mom7d < 0.5*mom30d(0.05) is false (0.05 !< 0.05)
	// so it should NOT match ConsistentUptrend; adjust mom7d down slightly.
	state := ClassifyState(0.04, 0.1, 55, 0.1, 0.5, 1)
	if state != StateConsistentUptrend {
		t.Errorf("ClassifyState() = %v, want %v", state, StateConsistentUptrend)
	}
}

// TestClassifyStateLaggingPrecedesConsolidation documents a first-match
// quirk reproduced verbatim from the source rule block (per spec §4.5):
// Lagging's predicate (|mom7d|<th_low && |mom30d|<th_med) is a strict
// superset of Consolidation's (|mom7d|<th_low && |mom30d|<th_low, since
// th_low<th_med), so Consolidation can never fire when Lagging is tried
// first. This is a source quirk, not a rewrite bug -- flagged in
// DESIGN.md rather than silently reordered.
func TestClassifyStateLaggingPrecedesConsolidation(t *testing.T) {
	state := ClassifyState(0.001, 0.002, 50, 0, 0.5, 1)
	if state != StateLagging {
		t.Errorf("ClassifyState() = %v, want %v (Consolidation is unreachable by rule order)", state, StateLagging)
	}
}

func TestOpportunityWithinRange(t *testing.T) {
	in := OpportunityInputs{
		MomentumShort: -0.001,
		MomentumLong:  0.01,
		RSI:           38,
		MACD:          -0.1,
		BBPosition:    f(0.2),
		TrendScore:    6,
		VolumeRatio:   1.6,
		StochK:        f(15),
		RSIBearishDiv: false,
	}
	got := Opportunity(in)
	if got < 0 || got > 100 {
		t.Errorf("Opportunity() = %v, want in [0,100]", got)
	}
	// A pullback-in-uptrend setup (favorable RSI/BB/momentum context) must
	// score well above a penalized, divergent, overbought one.
	divergent := in
	divergent.RSIBearishDiv = true
	divergent.RSI = 85
	gotDivergent := Opportunity(divergent)
	if gotDivergent >= got {
		t.Errorf("Opportunity(divergent/overbought) = %v, want < Opportunity(pullback) = %v", gotDivergent, got)
	}
}

// TestPositionSizingScenario exercises spec §8 end-to-end scenario 5:
// balance=10000, risk=2%, entry=100, stop=97, leverage=1, fee=0.001.
func TestPositionSizingScenario(t *testing.T) {
	got := CalculatePositionSize(10000, 2, 100, 97, 1, 0.001)

	if !near(got.StopDistancePct, 3.0, 1e-6) {
		t.Errorf("StopDistancePct = %v, want 3.0", got.StopDistancePct)
	}
	if !near(got.PositionValue, 6666.6667, 1e-3) {
		t.Errorf("PositionValue = %v, want ~6666.67", got.PositionValue)
	}
	if !near(got.Units, 66.6667, 1e-3) {
		t.Errorf("Units = %v, want ~66.67", got.Units)
	}
	if !near(got.TotalFees, 13.333, 1e-2) {
		t.Errorf("TotalFees = %v, want ~13.33", got.TotalFees)
	}
	// Note: spec §8 scenario 5 prose says "no warnings", but at these
	// inputs margin_required (position_value / leverage = 6666.67) exceeds
	// 0.5*balance (5000) under the exact warning rule spec §4.5 states
	// ("margin > 0.5*balance") -- the same outcome the original source
	// (scanner.py calculate_position_size) produces for this input. The
	// scenario's "no warnings" claim is flagged in DESIGN.md as
	// inconsistent with its own stated inputs/formula; this test asserts
	// the formula-faithful behavior rather than the inconsistent prose.
	foundHighRisk := false
	for _, w := range got.Warnings {
		if w == "Position uses >50% of account (high risk)" {
			foundHighRisk = true
		}
	}
	if !foundHighRisk {
		t.Errorf("expected a >50%% margin-usage warning for margin=%v balance=%v", got.MarginRequired, got.AccountBalance)
	}
	if !got.SafeToTrade {
		t.Errorf("SafeToTrade = false, want true (margin does not exceed full balance)")
	}
}

func TestPositionSizingWarningsLeverageAndRisk(t *testing.T) {
	got := CalculatePositionSize(10000, 5, 100, 99, 5, 0.001)
	wantSubstrings := []string{"High leverage", "Risking"}
	for _, want := range wantSubstrings {
		found := false
		for _, w := range got.Warnings {
			if len(w) >= len(want) && w[:len(want)] == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a warning starting with %q in %v", want, got.Warnings)
		}
	}
}

func TestPositionSizingInsufficientBalance(t *testing.T) {
	got := CalculatePositionSize(1000, 10, 100, 99, 1, 0.001)
	if got.SafeToTrade {
		t.Errorf("SafeToTrade = true, want false when margin exceeds account balance")
	}
}

// TestSLTPAdvisoryScenario exercises spec §8 end-to-end scenario 6: a
// Strong-Buy row at price=100, ATR=1.0, BB_upper=101, BB_lower=92,
// resistance=101.
func TestSLTPAdvisoryScenario(t *testing.T) {
	resistance := 101.0
	got := CalculateRisk(100, 1.0, f(92), f(101), nil, &resistance, true, false)

	if !near(got.StopLoss, 98.5, 1e-6) {
		t.Errorf("StopLoss = %v, want 98.5", got.StopLoss)
	}
	if !near(got.RiskAmount, 1.5, 1e-6) {
		t.Errorf("RiskAmount = %v, want 1.5", got.RiskAmount)
	}
	if !near(got.TakeProfit, 100.495, 1e-6) {
		t.Errorf("TakeProfit = %v, want 100.495", got.TakeProfit)
	}
	if !near(got.RiskRewardRatio, 0.33, 5e-3) {
		t.Errorf("RiskRewardRatio = %v, want ~0.33", got.RiskRewardRatio)
	}
}

func TestSLTPAdvisoryNeutralIsSymmetric(t *testing.T) {
	got := CalculateRisk(100, 1.0, nil, nil, nil, nil, false, false)
	if !near(got.StopLoss, 97, 1e-6) {
		t.Errorf("StopLoss = %v, want 97", got.StopLoss)
	}
	if !near(got.TakeProfit, 103, 1e-6) {
		t.Errorf("TakeProfit = %v, want 103", got.TakeProfit)
	}
}

func TestSLTPAdvisorySellMirrorsBuy(t *testing.T) {
	support := 99.0
	got := CalculateRisk(100, 1.0, f(99), f(108), &support, nil, false, true)
	if got.StopLoss <= 100 {
		t.Errorf("sell StopLoss = %v, want > entry price", got.StopLoss)
	}
	if got.TakeProfit >= 100 {
		t.Errorf("sell TakeProfit = %v, want < entry price", got.TakeProfit)
	}
}

func TestDefaultThresholdsScalesWithTimeframeAndMarket(t *testing.T) {
	short := DefaultThresholds(adapter.MarketSpot, adapter.TF1m)
	long := DefaultThresholds(adapter.MarketSpot, adapter.TF1d)
	if short.MomentumThreshold >= long.MomentumThreshold {
		t.Errorf("expected shorter timeframe to have a tighter momentum threshold: 1m=%v 1d=%v", short.MomentumThreshold, long.MomentumThreshold)
	}

	crypto := DefaultThresholds(adapter.MarketSpot, adapter.TF1h)
	forex := DefaultThresholds(adapter.MarketForex, adapter.TF1h)
	if forex.MomentumThreshold >= crypto.MomentumThreshold {
		t.Errorf("expected forex momentum threshold to be tighter than crypto: forex=%v crypto=%v", forex.MomentumThreshold, crypto.MomentumThreshold)
	}
}
