package adapter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// MockExchange is a deterministic in-memory Exchange used by tests and by
// the CLI, which builds one for every configured exchange. It never hits
// the network.
type MockExchange struct {
	mu       sync.Mutex
	name     string
	markets  []Symbol
	series   map[string][]Candle // keyed by symbol pair
	tickers  map[string]Ticker
	fail     map[string]Kind // optional forced failures, keyed by pair
	failN    map[string]int  // remaining forced-failure count
	closed   bool
}

// NewMockExchange builds a mock adapter with synthetic random-walk candles
// for the given pairs, seeded deterministically from the pair name so test
// runs are reproducible.
func NewMockExchange(name string, pairs []string, barsPerPair int) *MockExchange {
	m := &MockExchange{
		name:    name,
		series:  make(map[string][]Candle),
		tickers: make(map[string]Ticker),
		fail:    make(map[string]Kind),
		failN:   make(map[string]int),
	}
	for _, p := range pairs {
		m.markets = append(m.markets, Symbol{ExchangeID: name, Pair: p, Quote: "USDT", MarketType: MarketSpot})
		m.series[p] = syntheticSeries(p, barsPerPair)
	}
	for p, c := range m.series {
		last := c[len(c)-1]
		m.tickers[p] = Ticker{
			Symbol:      Symbol{ExchangeID: name, Pair: p, Quote: "USDT"},
			Last:        last.Close,
			Bid:         last.Close * 0.999,
			Ask:         last.Close * 1.001,
			QuoteVolume: last.Volume * last.Close,
			Timestamp:   last.Timestamp,
		}
	}
	return m
}

// syntheticSeries derives a deterministic pseudo-random-walk candle series
// from the pair's name so the same pair always produces the same data.
func syntheticSeries(pair string, n int) []Candle {
	seed := 0
	for _, r := range pair {
		seed = seed*31 + int(r)
	}
	price := 100.0 + float64(seed%50)
	out := make([]Candle, 0, n)
	start := time.Now().Add(-time.Duration(n) * time.Hour).Truncate(time.Hour)
	x := uint64(seed) | 1
	next := func() float64 {
		// xorshift64 for a fast, dependency-free deterministic PRNG.
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		return float64(x%10000)/10000.0 - 0.5
	}
	for i := 0; i < n; i++ {
		drift := next() * 0.02
		open := price
		close := price * (1 + drift)
		high := math.Max(open, close) * (1 + math.Abs(next())*0.005)
		low := math.Min(open, close) * (1 - math.Abs(next())*0.005)
		vol := 1000 + math.Abs(next())*5000
		out = append(out, Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    vol,
		})
		price = close
	}
	return out
}

// SetFailure forces FetchOHLCV/FetchTicker for pair to return kind n times
// before resuming normal behavior. Used to exercise the rate-limit and
// circuit-breaker test scenarios from spec §8.
func (m *MockExchange) SetFailure(pair string, kind Kind, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[pair] = kind
	m.failN[pair] = n
}

func (m *MockExchange) consumeFailure(pair string) (Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.failN[pair]
	if !ok || n <= 0 {
		return KindUnknown, false
	}
	m.failN[pair] = n - 1
	return m.fail[pair], true
}

func (m *MockExchange) Name() string { return m.name }

func (m *MockExchange) FetchMarkets(ctx context.Context, marketType MarketType, quote string) ([]Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Symbol, 0, len(m.markets))
	for _, s := range m.markets {
		if quote != "" && s.Quote != quote {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MockExchange) FetchOHLCV(ctx context.Context, symbol Symbol, tf Timeframe, limit int) ([]Candle, error) {
	if kind, ok := m.consumeFailure(symbol.Pair); ok {
		return nil, NewError(kind, m.name, symbol.Pair, fmt.Errorf("simulated %s", kind))
	}
	m.mu.Lock()
	series, ok := m.series[symbol.Pair]
	m.mu.Unlock()
	if !ok {
		return nil, NewError(KindSymbolUnknown, m.name, symbol.Pair, fmt.Errorf("unknown symbol"))
	}
	if limit > 0 && limit < len(series) {
		series = series[len(series)-limit:]
	}
	cp := make([]Candle, len(series))
	copy(cp, series)
	return cp, nil
}

func (m *MockExchange) FetchTicker(ctx context.Context, symbol Symbol) (Ticker, error) {
	if kind, ok := m.consumeFailure(symbol.Pair); ok {
		return Ticker{}, NewError(kind, m.name, symbol.Pair, fmt.Errorf("simulated %s", kind))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickers[symbol.Pair]
	if !ok {
		return Ticker{}, NewError(KindSymbolUnknown, m.name, symbol.Pair, fmt.Errorf("unknown symbol"))
	}
	return t, nil
}

func (m *MockExchange) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
