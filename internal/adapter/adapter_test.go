package adapter

import (
	"errors"
	"fmt"
	"testing"
)

func TestCandleValid(t *testing.T) {
	cases := []struct {
		name string
		c    Candle
		want bool
	}{
		{"well-formed", Candle{Open: 10, High: 12, Low: 9, Close: 11, Volume: 5}, true},
		{"negative volume dropped", Candle{Open: 10, High: 12, Low: 9, Close: 11, Volume: -1}, false},
		{"high below close dropped", Candle{Open: 10, High: 10.5, Low: 9, Close: 11, Volume: 1}, false},
		{"low above open dropped", Candle{Open: 10, High: 12, Low: 10.5, Close: 11, Volume: 1}, false},
		{"degenerate flat candle ok", Candle{Open: 10, High: 10, Low: 10, Close: 10, Volume: 0}, true},
	}
	for _, c := range cases {
		if got := c.c.Valid(); got != c.want {
			t.Errorf("%s: Valid() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestKindOfPrefersTypedError(t *testing.T) {
	inner := NewError(KindRateLimited, "kraken", "BTC/USDT", errors.New("boom"))
	wrapped := fmt.Errorf("scan failed: %w", inner)
	if got := KindOf(wrapped); got != KindRateLimited {
		t.Errorf("KindOf(wrapped typed error) = %v, want %v", got, KindRateLimited)
	}
}

func TestKindOfUnwrapsTypedError(t *testing.T) {
	err := NewError(KindTimeout, "binance", "ETH/USDT", errors.New("deadline"))
	if got := KindOf(err); got != KindTimeout {
		t.Errorf("KindOf(*Error) = %v, want %v", got, KindTimeout)
	}
}

func TestKindOfSubstringClassification(t *testing.T) {
	cases := []struct {
		msg  string
		want Kind
	}{
		{"HTTP 429 Too Many Requests", KindRateLimited},
		{"rate limit exceeded", KindRateLimited},
		{"request throttled", KindRateLimited},
		{"context deadline exceeded", KindTimeout},
		{"read timeout after 15s", KindTimeout},
		{"unknown symbol FOO/BAR", KindSymbolUnknown},
		{"no such market", KindSymbolUnknown},
		{"market suspended", KindMarketInactive},
		{"symbol inactive", KindMarketInactive},
		{"connection reset by peer", KindTransient},
		{"unexpected EOF", KindTransient},
		{"502 bad gateway", KindTransient},
		{"503 service unavailable", KindTransient},
		{"invalid API key", KindFatal},
	}
	for _, c := range cases {
		if got := KindOf(errors.New(c.msg)); got != c.want {
			t.Errorf("KindOf(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

func TestKindOfNilError(t *testing.T) {
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	ae := NewError(KindFatal, "kraken", "BTC/USDT", inner)
	if !errors.Is(ae, inner) {
		t.Error("expected errors.Is to find the wrapped inner error")
	}
}
