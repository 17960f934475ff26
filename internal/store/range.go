package store

import (
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/continuous"
)

// TrainingTimeframes is the fixed set of timeframes a range assembly pulls
// OHLCV for, matching the continuous pipeline's L2 timeframe set.
var TrainingTimeframes = continuous.SignalTimeframes

// RangeDataset is the assembled result of a range query, per spec §4.8's
// "Range reader" and §6's training-data endpoint.
type RangeDataset struct {
	Symbol     string
	Signals    []continuous.SignalEntry
	OHLCV      map[adapter.Timeframe][]adapter.Candle
	Clustering []ClusterRecord
}

// LoadRange walks [today-days, today] day by day, loading signals and
// clustering for (exchange,pair) plus each configured timeframe's OHLCV
// file, per spec §4.8.
func (s *DayFileStore) LoadRange(exchange, pair string, days int) (RangeDataset, error) {
	out := RangeDataset{
		Symbol: pair,
		OHLCV:  make(map[adapter.Timeframe][]adapter.Candle, len(TrainingTimeframes)),
	}

	today := time.Now().UTC()
	for d := days; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)

		sigs, err := s.LoadSignals(exchange, pair, day)
		if err != nil {
			return RangeDataset{}, err
		}
		out.Signals = append(out.Signals, sigs...)

		clusters, err := s.LoadClusters(exchange, pair, day)
		if err != nil {
			return RangeDataset{}, err
		}
		out.Clustering = append(out.Clustering, clusters...)
	}

	for _, tf := range TrainingTimeframes {
		candles, err := s.LoadOHLCV(exchange, pair, tf)
		if err != nil {
			return RangeDataset{}, err
		}
		out.OHLCV[tf] = candles
	}

	return out, nil
}
