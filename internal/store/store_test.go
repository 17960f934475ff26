package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/continuous"
)

func TestDayFileStoreAppendAndLoadSignals(t *testing.T) {
	s, err := NewDayFileStore(t.TempDir())
	require.NoError(t, err)

	now := time.Now().UTC()
	entry := continuous.SignalEntry{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: adapter.TF1h, CombinedScore: 71, Timestamp: now}
	require.NoError(t, s.AppendSignal("binance", "BTC/USDT", adapter.TF1h, entry))
	require.NoError(t, s.AppendSignal("binance", "BTC/USDT", adapter.TF1h, entry))

	loaded, err := s.LoadSignals("binance", "BTC/USDT", now)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
}

func TestDayFileStoreMissingFileReadsEmpty(t *testing.T) {
	s, err := NewDayFileStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := s.LoadSignals("binance", "ETH/USDT", time.Now())
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestOHLCVStoreRoundTripAndBounded(t *testing.T) {
	s, err := NewDayFileStore(t.TempDir())
	require.NoError(t, err)

	base := time.Now().Add(-600 * time.Hour)
	var candles []adapter.Candle
	for i := 0; i < 600; i++ {
		candles = append(candles, adapter.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 10,
		})
	}

	require.NoError(t, s.AppendOHLCV("binance", "BTC/USDT", adapter.TF1h, candles))

	loaded, err := s.LoadOHLCV("binance", "BTC/USDT", adapter.TF1h)
	require.NoError(t, err)
	require.Len(t, loaded, OHLCVMaxCandles)
	require.Equal(t, candles[len(candles)-1].Timestamp.Unix(), loaded[len(loaded)-1].Timestamp.Unix())
}

func TestLoadRangeAssemblesAllShapes(t *testing.T) {
	s, err := NewDayFileStore(t.TempDir())
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, s.AppendSignal("binance", "BTC/USDT", adapter.TF1h, continuous.SignalEntry{Timestamp: now, CombinedScore: 55}))
	require.NoError(t, s.AppendCluster("binance", "BTC/USDT", ClusterRecord{Timestamp: now, TotalClusters: 2}))

	ds, err := s.LoadRange("binance", "BTC/USDT", 3)
	require.NoError(t, err)
	require.Len(t, ds.Signals, 1)
	require.Len(t, ds.Clustering, 1)
	require.Contains(t, ds.OHLCV, adapter.TF1h)
}
