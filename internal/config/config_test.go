package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsNegativeTTL(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTLSeconds = -1
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cache.ttl_seconds")
}

func TestValidateRejectsZeroConcurrencyCap(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.MaxConcurrentPerHost = 0
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate_limit.max_concurrent_per_host")
}

func TestValidateRejectsInvalidPort(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "http.port")
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.yaml")
	yamlBody := `
cache:
  ttl_seconds: 120
  max_entries: 1000
scan:
  max_symbols: 100
  top_n: 10
  candle_limit: 220
rate_limit:
  delay_ms: 10
  max_concurrent_per_host: 20
  circuit_breaker_threshold: 10
  circuit_breaker_pause_seconds: 60
  retry_attempts: 3
continuous:
  tick_period_seconds: 5
  signal_period_seconds: 30
  market_state_period_seconds: 60
  full_scan_period_seconds: 90
http:
  host: 127.0.0.1
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 120, cfg.Cache.TTLSeconds)
	require.Equal(t, 100, cfg.Scan.MaxSymbols)
	require.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
