package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())

	iv, err := cfg.Trading.Interval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, iv)
	assert.True(t, cfg.OANDA.Practice())
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
oanda:
  environment: live
trading:
  instruments: [EUR_USD, USD_JPY]
  granularity: M15
  check_interval: 5m
sizing:
  method: kelly_criterion
  risk_per_trade: 0.01
risk:
  max_open_positions: 5
strategy:
  name: ema-cross
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.OANDA.Environment)
	assert.False(t, cfg.OANDA.Practice())
	assert.Equal(t, []string{"EUR_USD", "USD_JPY"}, cfg.Trading.Instruments)
	assert.Equal(t, "M15", cfg.Trading.Granularity)
	assert.Equal(t, "kelly_criterion", cfg.Sizing.Method)
	assert.InDelta(t, 0.01, cfg.Sizing.RiskPerTrade, 1e-9)
	assert.Equal(t, 5, cfg.Risk.MaxOpenPositions)
	assert.Equal(t, "ema-cross", cfg.Strategy.Name)

	// Unset fields keep their defaults.
	assert.InDelta(t, 0.25, cfg.Sizing.KellyFraction, 1e-9)
	assert.Equal(t, "trades.db", cfg.Journal.DBPath)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"trading": {"instruments": ["GBP_USD"], "granularity": "M5"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GBP_USD"}, cfg.Trading.Instruments)
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"bad environment", "oanda:\n  environment: sandbox\n"},
		{"empty instruments", "trading:\n  instruments: []\n"},
		{"bad interval", "trading:\n  check_interval: soon\n"},
		{"risk out of range", "sizing:\n  risk_per_trade: 1.5\n"},
		{"unknown strategy", "strategy:\n  name: martingale\n"},
		{"garbage", "{{{{not a config"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0644))
			_, err := LoadFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Trading.Granularity = "H1"
	cfg.OANDA.APIKey = "secret-key"
	cfg.OANDA.AccountID = "001-001-1234567-001"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "H1", loaded.Trading.Granularity)

	// Credentials never reach disk.
	assert.Empty(t, loaded.OANDA.APIKey)
	assert.Empty(t, loaded.OANDA.AccountID)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OANDA_API_KEY", "env-key")
	t.Setenv("OANDA_ACCOUNT_ID", "101-001-0000000-001")
	t.Setenv("OANDA_ENVIRONMENT", "live")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "env-key", cfg.OANDA.APIKey)
	assert.Equal(t, "101-001-0000000-001", cfg.OANDA.AccountID)
	assert.Equal(t, "live", cfg.OANDA.Environment)
	assert.NoError(t, cfg.ValidateCredentials())
}

func TestValidateCredentials(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Error(t, cfg.ValidateCredentials())

	cfg.OANDA.APIKey = "k"
	assert.Error(t, cfg.ValidateCredentials())

	cfg.OANDA.AccountID = "a"
	assert.NoError(t, cfg.ValidateCredentials())
}
