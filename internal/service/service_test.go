package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/config"
)

func testConfig(t *testing.T) config.ScannerConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Store.TrainingDataRoot = t.TempDir()
	return cfg
}

func mockBuilder(ecfg config.ExchangeConfig) (adapter.Exchange, error) {
	return adapter.NewMockExchange(ecfg.Name, []string{"BTC/USDT", "ETH/USDT"}, 260), nil
}

func TestNewWiresOneOrchestratorPerEnabledExchange(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(ScannerDeps{Cfg: cfg, BuildExchange: mockBuilder})
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.Exchanges, 1)
	require.Contains(t, s.Orchestrators, "kucoinfutures")
	require.NotNil(t, s.Pipeline)
	require.NotNil(t, s.Metrics)
	require.False(t, s.Pipeline.Running())
}

func TestNewErrorsWhenNoAdapterConstructs(t *testing.T) {
	cfg := testConfig(t)
	_, err := New(ScannerDeps{
		Cfg: cfg,
		BuildExchange: func(ecfg config.ExchangeConfig) (adapter.Exchange, error) {
			return nil, errors.New("boom")
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no adapter could be constructed")
}

func TestNewErrorsWithoutBuildExchange(t *testing.T) {
	_, err := New(ScannerDeps{Cfg: testConfig(t)})
	require.Error(t, err)
}

func TestNewSkipsDisabledExchanges(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exchanges = []config.ExchangeConfig{
		{Name: "kucoinfutures", Enabled: true},
		{Name: "binance", Enabled: false},
	}
	s, err := New(ScannerDeps{Cfg: cfg, BuildExchange: mockBuilder})
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.Exchanges, 1)
	require.NotContains(t, s.Exchanges, "binance")
}

func TestStartStopContinuousLifecycle(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(ScannerDeps{Cfg: cfg, BuildExchange: mockBuilder})
	require.NoError(t, err)

	require.NoError(t, s.StartContinuous(context.Background()))
	require.True(t, s.Pipeline.Running())

	s.StopContinuous()
	require.False(t, s.Pipeline.Running())
}
