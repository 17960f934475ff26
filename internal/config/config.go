// Package config implements the scanner's configuration layer (C10):
// YAML-backed settings with explicit defaults and field-level validation,
// grounded on the teacher's internal/config/providers.go (YAML unmarshal +
// Validate() naming the offending field).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ExchangeConfig is one configured exchange adapter.
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	MarketType string `yaml:"market_type"`
	Enabled    bool   `yaml:"enabled"`
}

// CacheConfig configures the OHLCV cache tier (C2/C13).
type CacheConfig struct {
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxEntries int    `yaml:"max_entries"`
	RedisAddr  string `yaml:"redis_addr"` // empty = in-memory tier
}

// RateLimitConfig configures the concurrency gate and circuit breaker
// (C3).
type RateLimitConfig struct {
	DelayMS              int `yaml:"delay_ms"`
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	BreakerThreshold     int `yaml:"circuit_breaker_threshold"`
	BreakerPauseSeconds  int `yaml:"circuit_breaker_pause_seconds"`
	RetryAttempts        int `yaml:"retry_attempts"`
}

// ScanConfig configures the scan orchestrator (C6).
type ScanConfig struct {
	MaxSymbols  int `yaml:"max_symbols"`
	TopN        int `yaml:"top_n"`
	CandleLimit int `yaml:"candle_limit"`
}

// ContinuousConfig configures the four continuous loops (C7).
type ContinuousConfig struct {
	TickPeriodSeconds        int `yaml:"tick_period_seconds"`
	SignalPeriodSeconds      int `yaml:"signal_period_seconds"`
	MarketStatePeriodSeconds int `yaml:"market_state_period_seconds"`
	FullScanPeriodSeconds    int `yaml:"full_scan_period_seconds"`
}

// StoreConfig configures the persistence layer (C8/C15).
type StoreConfig struct {
	TrainingDataRoot string `yaml:"training_data_root"`
	PostgresDSN      string `yaml:"postgres_dsn"` // empty = sink disabled
}

// HTTPConfig configures the control API server (C9).
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ScannerConfig is the top-level configuration document, per spec §4.10.
type ScannerConfig struct {
	Exchanges  []ExchangeConfig `yaml:"exchanges"`
	Cache      CacheConfig      `yaml:"cache"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Scan       ScanConfig       `yaml:"scan"`
	Continuous ContinuousConfig `yaml:"continuous"`
	Store      StoreConfig      `yaml:"store"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// Default returns the scanner's default configuration, matching the
// defaults scattered through spec §4.1-§4.9 (TTL 300s, rate-limit delay
// 10ms, breaker threshold 10 / pause 60s, retry attempts 3, max_symbols
// 460, top_n 50).
func Default() ScannerConfig {
	return ScannerConfig{
		Exchanges: []ExchangeConfig{{Name: "kucoinfutures", MarketType: "future", Enabled: true}},
		Cache:     CacheConfig{TTLSeconds: 300, MaxEntries: 5000},
		RateLimit: RateLimitConfig{
			DelayMS:              10,
			MaxConcurrentPerHost: 50,
			BreakerThreshold:     10,
			BreakerPauseSeconds:  60,
			RetryAttempts:        3,
		},
		Scan:       ScanConfig{MaxSymbols: 460, TopN: 50, CandleLimit: 220},
		Continuous: ContinuousConfig{TickPeriodSeconds: 5, SignalPeriodSeconds: 30, MarketStatePeriodSeconds: 60, FullScanPeriodSeconds: 90},
		Store:      StoreConfig{TrainingDataRoot: "training_data"},
		HTTP:       HTTPConfig{Host: "127.0.0.1", Port: 8080},
	}
}

// Load reads and parses a YAML config file at path, applying Default()
// for the zero-value ScannerConfig first so an omitted section keeps its
// default rather than zeroing out. HTTP_PORT, when set, overrides
// http.port, matching the teacher's HTTP_PORT env convention.
func Load(path string) (ScannerConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ScannerConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return ScannerConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			cfg.HTTP.Port = p
		}
	}
	if err := cfg.Validate(); err != nil {
		return ScannerConfig{}, err
	}
	return cfg, nil
}

// Validate rejects a negative TTL or zero concurrency cap (and other
// structurally invalid settings) with a message naming the offending
// field, per spec §8 testable property 10.
func (c ScannerConfig) Validate() error {
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config: cache.ttl_seconds must be >= 0, got %d", c.Cache.TTLSeconds)
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("config: rate_limit.max_concurrent_per_host must be positive, got %d", c.RateLimit.MaxConcurrentPerHost)
	}
	if c.RateLimit.BreakerThreshold <= 0 {
		return fmt.Errorf("config: rate_limit.circuit_breaker_threshold must be positive, got %d", c.RateLimit.BreakerThreshold)
	}
	if c.RateLimit.RetryAttempts < 0 {
		return fmt.Errorf("config: rate_limit.retry_attempts must be >= 0, got %d", c.RateLimit.RetryAttempts)
	}
	if c.Scan.MaxSymbols <= 0 {
		return fmt.Errorf("config: scan.max_symbols must be positive, got %d", c.Scan.MaxSymbols)
	}
	if c.Scan.TopN <= 0 {
		return fmt.Errorf("config: scan.top_n must be positive, got %d", c.Scan.TopN)
	}
	if c.Continuous.TickPeriodSeconds <= 0 {
		return fmt.Errorf("config: continuous.tick_period_seconds must be positive, got %d", c.Continuous.TickPeriodSeconds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port must be in 1..65535, got %d", c.HTTP.Port)
	}
	return nil
}

// CacheTTL returns Cache.TTLSeconds as a time.Duration.
func (c ScannerConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// BreakerPause returns RateLimit.BreakerPauseSeconds as a time.Duration.
func (c ScannerConfig) BreakerPause() time.Duration {
	return time.Duration(c.RateLimit.BreakerPauseSeconds) * time.Second
}

// RateLimitDelay returns RateLimit.DelayMS as a time.Duration.
func (c ScannerConfig) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimit.DelayMS) * time.Millisecond
}
