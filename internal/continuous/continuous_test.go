package continuous

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

func TestRingBufferOverwritesOldestAndNeverExceedsCapacity(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 0; i < 10; i++ {
		rb.Push(i)
	}
	require.Equal(t, 3, rb.Len())
	require.Equal(t, []int{7, 8, 9}, rb.Snapshot())
}

func TestRingBufferConcurrentPushReadNeverTorn(t *testing.T) {
	rb := NewRingBuffer[int](50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rb.Push(i*100 + j)
			}
		}(i)
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				_ = rb.Snapshot()
			}
		}
	}()
	wg.Wait()
	close(done)
	require.LessOrEqual(t, rb.Len(), 50)
}

func TestConfluenceModerateScenario(t *testing.T) {
	p := NewPipeline(nil, nil, nil, "", DefaultConfig())

	seed := map[adapter.Timeframe]struct {
		sig   CategoricalSignal
		score float64
	}{
		adapter.TF5m: {SignalMomentumBuy, 70},
		adapter.TF1h: {SignalMomentumBuy, 72},
		adapter.TF4h: {SignalNeutral, 40},
		adapter.TF1d: {SignalMomentumBuy, 68},
	}
	for tf, s := range seed {
		p.SignalBuffer("binance", "BTC/USDT", tf).Push(SignalEntry{
			Exchange: "binance", Symbol: "BTC/USDT", Timeframe: tf,
			CombinedScore: s.score, Signal: s.sig, Timestamp: time.Now(),
		})
	}

	c := p.QueryConfluence("binance", "BTC/USDT", 60)
	require.True(t, c.Confluence)
	require.Equal(t, 3, c.BullishTimeframes)
	require.Equal(t, 0, c.BearishTimeframes)
	require.Equal(t, RecommendationModerate, c.Recommendation)
	require.InDelta(t, 62.5, c.MeanCombinedScore, 0.01)
}

func TestClassifyClustersTrendFormation(t *testing.T) {
	candles := make([]adapter.Candle, 0, 20)
	base := time.Now().Add(-20 * time.Hour)
	for i := 0; i < 17; i++ {
		candles = append(candles, adapter.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open: 100, High: 101, Low: 99, Close: 100.1, Volume: 100,
		})
	}
	for i := 17; i < 20; i++ {
		candles = append(candles, adapter.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000,
		})
	}

	res := ClassifyClusters(candles)
	require.Equal(t, 1, res.TotalClusters)
	require.Equal(t, 1, res.BullishClusters)
	require.InDelta(t, 1.0, res.DirectionalRatio, 0.001)
	require.InDelta(t, 1.0, res.FollowThrough, 0.001)
	require.True(t, res.TrendFormation)
}

func TestReversionFlagsRSIExtreme(t *testing.T) {
	candles := make([]adapter.Candle, 0, 30)
	price := 100.0
	base := time.Now().Add(-30 * time.Hour)
	for i := 0; i < 30; i++ {
		price *= 1.01
		candles = append(candles, adapter.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open: price, High: price * 1.001, Low: price * 0.999, Close: price, Volume: 100,
		})
	}
	res := Reversion(candles)
	require.True(t, res.RSIExtreme)
	// A sustained uptrend's positive 5-bar return flags a bearish
	// reversal expectation, per spec §4.7's exhaustion-direction rule.
	require.True(t, res.Bearish)
}
