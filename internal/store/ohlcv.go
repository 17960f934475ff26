package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/sawpanic/marketscanner/internal/adapter"
)

func msToTime(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// ohlcvFormatVersion is a leading format-version byte so a future reader
// can tell this gzip-compressed-JSON columnar snapshot apart from a real
// Parquet file sharing the .parquet extension, per DESIGN.md's Open
// Question decision (no Parquet-writing library exists anywhere in the
// retrieval pack).
const ohlcvFormatVersion byte = 1

// ohlcvColumns is the columnar representation written to disk: one slice
// per field rather than an array of structs, matching "columnar" in
// spec §4.8/§6.
type ohlcvColumns struct {
	Timestamp []int64   `json:"timestamp"`
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
}

func toColumns(candles []adapter.Candle) ohlcvColumns {
	c := ohlcvColumns{
		Timestamp: make([]int64, len(candles)),
		Open:      make([]float64, len(candles)),
		High:      make([]float64, len(candles)),
		Low:       make([]float64, len(candles)),
		Close:     make([]float64, len(candles)),
		Volume:    make([]float64, len(candles)),
	}
	for i, candle := range candles {
		c.Timestamp[i] = candle.Timestamp.UnixMilli()
		c.Open[i] = candle.Open
		c.High[i] = candle.High
		c.Low[i] = candle.Low
		c.Close[i] = candle.Close
		c.Volume[i] = candle.Volume
	}
	return c
}

func fromColumns(c ohlcvColumns) []adapter.Candle {
	out := make([]adapter.Candle, len(c.Timestamp))
	for i := range c.Timestamp {
		out[i] = adapter.Candle{
			Timestamp: msToTime(c.Timestamp[i]),
			Open:      c.Open[i],
			High:      c.High[i],
			Low:       c.Low[i],
			Close:     c.Close[i],
			Volume:    c.Volume[i],
		}
	}
	return out
}

// OHLCVMaxCandles bounds the per-series columnar file, per spec §4.8.
const OHLCVMaxCandles = 500

func (s *DayFileStore) ohlcvPath(exchange, pair string, tf adapter.Timeframe) string {
	return filepath.Join(s.Root, "ohlcv", fmt.Sprintf("%s_%s_%s.parquet", exchange, sanitizePair(pair), tf))
}

// AppendOHLCV overwrites the (exchange,pair,timeframe) columnar file with
// the most recent OHLCVMaxCandles candles from the merge of the existing
// file's contents and candles, per spec §4.8: "the most recent 500
// candles for that series; overwrite on every append."
func (s *DayFileStore) AppendOHLCV(exchange, pair string, tf adapter.Timeframe, candles []adapter.Candle) error {
	path := s.ohlcvPath(exchange, pair, tf)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	existing, _ := s.readOHLCVLocked(path)
	merged := mergeCandles(existing, candles)
	if len(merged) > OHLCVMaxCandles {
		merged = merged[len(merged)-OHLCVMaxCandles:]
	}

	columns := toColumns(merged)
	payload, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("store: marshal ohlcv: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(ohlcvFormatVersion)
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("store: gzip ohlcv: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("store: gzip close: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

// LoadOHLCV reads back the (exchange,pair,timeframe) columnar file.
func (s *DayFileStore) LoadOHLCV(exchange, pair string, tf adapter.Timeframe) ([]adapter.Candle, error) {
	path := s.ohlcvPath(exchange, pair, tf)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return s.readOHLCVLocked(path)
}

func (s *DayFileStore) readOHLCVLocked(path string) ([]adapter.Candle, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 || raw[0] != ohlcvFormatVersion {
		return nil, fmt.Errorf("store: unrecognized ohlcv format in %s", path)
	}
	gz, err := gzip.NewReader(bytes.NewReader(raw[1:]))
	if err != nil {
		return nil, fmt.Errorf("store: gzip reader: %w", err)
	}
	defer gz.Close()

	var columns ohlcvColumns
	if err := json.NewDecoder(gz).Decode(&columns); err != nil {
		return nil, fmt.Errorf("store: decode ohlcv: %w", err)
	}
	return fromColumns(columns), nil
}

// mergeCandles appends every incoming candle whose timestamp is not
// already present, deduplicating on timestamp so repeated overlapping
// fetches don't grow the file unbounded, and sorts the result by time.
func mergeCandles(existing, incoming []adapter.Candle) []adapter.Candle {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	out := make([]adapter.Candle, 0, len(existing)+len(incoming))
	for _, c := range existing {
		ts := c.Timestamp.UnixMilli()
		if _, dup := seen[ts]; dup {
			continue
		}
		seen[ts] = struct{}{}
		out = append(out, c)
	}
	for _, c := range incoming {
		ts := c.Timestamp.UnixMilli()
		if _, dup := seen[ts]; dup {
			continue
		}
		seen[ts] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
