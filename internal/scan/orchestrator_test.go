package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/cache"
	"github.com/sawpanic/marketscanner/internal/ratelimit"
)

// buildMockWithBars seeds a mock adapter with full-length (300-bar) series
// for pairs A, B and C; the test routes C to a short series separately
// (spec §8 scenario 1).
func buildMockWithBars(t *testing.T) *adapter.MockExchange {
	t.Helper()
	ex := adapter.NewMockExchange("mock", []string{"A/USDT", "B/USDT", "C/USDT"}, 300)
	return ex
}

func TestScanSingleExchangeDropsInsufficientSymbol(t *testing.T) {
	ex := buildMockWithBars(t)

	o := NewOrchestrator(ex, cache.NewTTLCache(300*time.Second, 1000), ratelimit.NewManager(ratelimit.DefaultBreakerConfig(), 20, time.Millisecond))
	o.Config.CandleLimit = 220

	// "C"'s series is shorter than MinWindow; everything else is full-length.
	cEx := adapter.NewMockExchange("mock", []string{"C/USDT"}, 50)

	// Compose a small wrapper exchange that blends full-length A/B with a
	// short-length C, matching the exact scenario shape in spec §8.
	blended := &blendExchange{markets: []adapter.Symbol{
		{ExchangeID: "mock", Pair: "A/USDT", Quote: "USDT"},
		{ExchangeID: "mock", Pair: "B/USDT", Quote: "USDT"},
		{ExchangeID: "mock", Pair: "C/USDT", Quote: "USDT"},
	}, full: ex, short: cEx}
	o.Exchange = blended

	res, err := o.Scan(context.Background(), DefaultRequest())
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalScanned)
	require.Equal(t, 1, res.Dropped)
	require.Len(t, res.Signals, 2)
}

// blendExchange routes FetchOHLCV for "C/USDT" to a short-series adapter
// and everything else to a full-series one, reproducing spec §8 scenario
// 1's two-full-one-short setup (220/220/50 bars at CandleLimit 220, since
// MinWindow is 210) without a third MockExchange knob.
type blendExchange struct {
	markets []adapter.Symbol
	full    *adapter.MockExchange
	short   *adapter.MockExchange
}

func (b *blendExchange) Name() string { return "mock" }
func (b *blendExchange) FetchMarkets(ctx context.Context, mt adapter.MarketType, quote string) ([]adapter.Symbol, error) {
	return b.markets, nil
}
func (b *blendExchange) FetchOHLCV(ctx context.Context, symbol adapter.Symbol, tf adapter.Timeframe, limit int) ([]adapter.Candle, error) {
	if symbol.Pair == "C/USDT" {
		return b.short.FetchOHLCV(ctx, symbol, tf, limit)
	}
	return b.full.FetchOHLCV(ctx, symbol, tf, limit)
}
func (b *blendExchange) FetchTicker(ctx context.Context, symbol adapter.Symbol) (adapter.Ticker, error) {
	return b.full.FetchTicker(ctx, symbol)
}
func (b *blendExchange) Close() error { return nil }

func TestCombinedScoreInvariant(t *testing.T) {
	ex := adapter.NewMockExchange("mock", []string{"A/USDT"}, 300)
	o := NewOrchestrator(ex, cache.NewTTLCache(300*time.Second, 100), ratelimit.NewManager(ratelimit.DefaultBreakerConfig(), 20, time.Millisecond))

	res, err := o.Scan(context.Background(), DefaultRequest())
	require.NoError(t, err)
	require.Len(t, res.Signals, 1)

	s := res.Signals[0]
	expected := 0.50*s.OpportunityScore + 0.25*s.CompositeScore + 0.15*s.VolumeComposite + 0.10*s.Strength
	require.InDelta(t, expected, s.CombinedScore, combinedScoreInvariantEps)
	require.GreaterOrEqual(t, s.Strength, 0.0)
	require.LessOrEqual(t, s.Strength, 100.0)
}

func TestScanResultSortedAndTruncated(t *testing.T) {
	pairs := []string{"A/USDT", "B/USDT", "C/USDT", "D/USDT", "E/USDT"}
	ex := adapter.NewMockExchange("mock", pairs, 300)
	o := NewOrchestrator(ex, cache.NewTTLCache(300*time.Second, 100), ratelimit.NewManager(ratelimit.DefaultBreakerConfig(), 20, time.Millisecond))
	o.Config.TopN = 2

	res, err := o.Scan(context.Background(), DefaultRequest())
	require.NoError(t, err)
	require.LessOrEqual(t, len(res.Signals), 2)
	for i := 1; i < len(res.Signals); i++ {
		require.GreaterOrEqual(t, res.Signals[i-1].CombinedScore, res.Signals[i].CombinedScore)
	}
}

func TestRateLimitedSymbolDoesNotCascade(t *testing.T) {
	ex := adapter.NewMockExchange("mock", []string{"A/USDT", "B/USDT"}, 300)
	ex.SetFailure("A/USDT", adapter.KindRateLimited, 10)

	breakerCfg := ratelimit.BreakerConfig{Threshold: 10, Pause: 200 * time.Millisecond}
	o := NewOrchestrator(ex, cache.NewTTLCache(300*time.Second, 100), ratelimit.NewManager(breakerCfg, 20, time.Millisecond))
	o.Retry.Attempts = 1

	res, err := o.Scan(context.Background(), DefaultRequest())
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalScanned)
	// B must still succeed even though A's fetch fails with a rate-limit
	// error (spec §8 #2: "no cascade into B"). RateLimited is not retried,
	// so A fails once, below the breaker threshold of 10.
	found := false
	for _, s := range res.Signals {
		if s.Symbol.Pair == "B/USDT" {
			found = true
		}
	}
	require.True(t, found)
}

func TestParallelScanFasterThanSequentialEstimate(t *testing.T) {
	exX := adapter.NewMockExchange("x", []string{"A/USDT"}, 300)
	exY := adapter.NewMockExchange("y", []string{"A/USDT"}, 300)

	slow := &delayExchange{Exchange: exX, delay: 50 * time.Millisecond}
	slower := &delayExchange{Exchange: exY, delay: 60 * time.Millisecond}

	orchestrators := map[string]*Orchestrator{
		"x": NewOrchestrator(slow, cache.NewTTLCache(300*time.Second, 100), ratelimit.NewManager(ratelimit.DefaultBreakerConfig(), 20, time.Millisecond)),
		"y": NewOrchestrator(slower, cache.NewTTLCache(300*time.Second, 100), ratelimit.NewManager(ratelimit.DefaultBreakerConfig(), 20, time.Millisecond)),
	}

	res := ParallelScan(context.Background(), orchestrators, DefaultRequest())
	require.Len(t, res.Timing.PerExchange, 2)
	require.Less(t, res.Timing.ParallelDuration, res.Timing.SequentialEstimated)
	require.Greater(t, res.Timing.Speedup, 1.0)
}

// delayExchange adds a fixed latency to FetchMarkets to simulate real
// network variance between exchanges for the parallel-scan timing test.
type delayExchange struct {
	adapter.Exchange
	delay time.Duration
}

func (d *delayExchange) FetchMarkets(ctx context.Context, mt adapter.MarketType, quote string) ([]adapter.Symbol, error) {
	time.Sleep(d.delay)
	return d.Exchange.FetchMarkets(ctx, mt, quote)
}
