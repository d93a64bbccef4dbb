// Package config loads the trader's configuration from a YAML or JSON file
// and overlays broker credentials from the environment. Credentials never
// live in the config file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AegisAIOWNER/oanda-trader/strategies"
)

// Config is the complete trader configuration.
type Config struct {
	OANDA    OANDAConfig    `json:"oanda" yaml:"oanda"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Sizing   SizingConfig   `json:"sizing" yaml:"sizing"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// OANDAConfig holds broker connection settings. APIKey and AccountID come
// from the environment (OANDA_API_KEY, OANDA_ACCOUNT_ID) and are never
// written back to disk.
type OANDAConfig struct {
	Environment string `json:"environment" yaml:"environment"` // "practice" or "live"
	APIKey      string `json:"-" yaml:"-"`
	AccountID   string `json:"-" yaml:"-"`
}

// Practice reports whether the practice endpoint should be used.
func (o OANDAConfig) Practice() bool {
	return o.Environment != "live"
}

// TradingConfig controls the polling loop.
type TradingConfig struct {
	Instruments   []string `json:"instruments" yaml:"instruments"`
	Granularity   string   `json:"granularity" yaml:"granularity"`
	CheckInterval string   `json:"check_interval" yaml:"check_interval"` // e.g. "2m"
	CandleCount   int      `json:"candle_count" yaml:"candle_count"`
}

// Interval parses CheckInterval into a duration.
func (t TradingConfig) Interval() (time.Duration, error) {
	if t.CheckInterval == "" {
		return 2 * time.Minute, nil
	}
	return time.ParseDuration(t.CheckInterval)
}

// SizingConfig selects and tunes the position-sizing method.
type SizingConfig struct {
	Method        string  `json:"method" yaml:"method"` // "fixed_percentage" or "kelly_criterion"
	RiskPerTrade  float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	KellyFraction float64 `json:"kelly_fraction" yaml:"kelly_fraction"`
	MinTradeValue float64 `json:"min_trade_value" yaml:"min_trade_value"`
}

// RiskConfig bounds the portfolio ledger and the daily loss stop.
type RiskConfig struct {
	MaxOpenPositions    int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxRiskPerPosition  float64 `json:"max_risk_per_position" yaml:"max_risk_per_position"`
	MaxTotalRisk        float64 `json:"max_total_risk" yaml:"max_total_risk"`
	MaxCorrelated       int     `json:"max_correlated" yaml:"max_correlated"`
	MaxPositionUnits    float64 `json:"max_position_units" yaml:"max_position_units"`
	MarginBuffer        float64 `json:"margin_buffer" yaml:"margin_buffer"`
	MaxDailyLossPercent float64 `json:"max_daily_loss_percent" yaml:"max_daily_loss_percent"`
}

// StrategyConfig selects the signal strategy and its confirmation layer.
type StrategyConfig struct {
	Name                    string  `json:"name" yaml:"name"`
	ConfidenceThreshold     float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	MultiTimeframe          bool    `json:"multi_timeframe" yaml:"multi_timeframe"`
	ConfirmationGranularity string  `json:"confirmation_granularity" yaml:"confirmation_granularity"`

	Scalp    strategies.ScalpConfig    `json:"scalp" yaml:"scalp"`
	EMACross strategies.EMACrossConfig `json:"ema_cross" yaml:"ema_cross"`
}

// JournalConfig locates the trade journal.
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
}

// Default returns a configuration suitable for a practice account.
func Default() *Config {
	return &Config{
		OANDA: OANDAConfig{
			Environment: "practice",
		},
		Trading: TradingConfig{
			Instruments: []string{
				"EUR_USD", "GBP_USD", "USD_JPY", "USD_CAD",
				"AUD_USD", "NZD_USD", "EUR_GBP", "USD_CHF",
			},
			Granularity:   "M5",
			CheckInterval: "2m",
			CandleCount:   100,
		},
		Sizing: SizingConfig{
			Method:        "fixed_percentage",
			RiskPerTrade:  0.02,
			KellyFraction: 0.25,
			MinTradeValue: 1.50,
		},
		Risk: RiskConfig{
			MaxOpenPositions:    3,
			MaxRiskPerPosition:  0.02,
			MaxTotalRisk:        0.10,
			MaxCorrelated:       2,
			MaxPositionUnits:    100000,
			MarginBuffer:        0.0,
			MaxDailyLossPercent: 6.0,
		},
		Strategy: StrategyConfig{
			Name:                    "scalp",
			ConfidenceThreshold:     0.6,
			MultiTimeframe:          true,
			ConfirmationGranularity: "H1",
			Scalp:                   strategies.ScalpDefaults(),
			EMACross:                strategies.EMACrossDefaults(),
		},
		Journal: JournalConfig{
			DBPath: "trades.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
	}
}

// LoadFromFile reads a config file, trying YAML first and falling back to
// JSON, then validates it. Fields absent from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, choosing the format by extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays broker credentials from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over file entries.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("OANDA_API_KEY"); v != "" {
		c.OANDA.APIKey = v
	}
	if v := os.Getenv("OANDA_ACCOUNT_ID"); v != "" {
		c.OANDA.AccountID = v
	}
	if v := os.Getenv("OANDA_ENVIRONMENT"); v != "" {
		c.OANDA.Environment = v
	}
}

// Validate checks structural correctness. Credential presence is checked
// separately because the offline commands run without any.
func (c *Config) Validate() error {
	switch c.OANDA.Environment {
	case "practice", "live":
	default:
		return fmt.Errorf("oanda.environment must be %q or %q, got %q", "practice", "live", c.OANDA.Environment)
	}
	if len(c.Trading.Instruments) == 0 {
		return fmt.Errorf("trading.instruments must not be empty")
	}
	if _, err := c.Trading.Interval(); err != nil {
		return fmt.Errorf("trading.check_interval: %w", err)
	}
	if c.Sizing.RiskPerTrade <= 0 || c.Sizing.RiskPerTrade > 1 {
		return fmt.Errorf("sizing.risk_per_trade must be in (0, 1], got %v", c.Sizing.RiskPerTrade)
	}
	if c.Sizing.KellyFraction <= 0 || c.Sizing.KellyFraction > 1 {
		return fmt.Errorf("sizing.kelly_fraction must be in (0, 1], got %v", c.Sizing.KellyFraction)
	}
	if c.Risk.MarginBuffer < 0 || c.Risk.MarginBuffer >= 1 {
		return fmt.Errorf("risk.margin_buffer must be in [0, 1), got %v", c.Risk.MarginBuffer)
	}
	if c.Risk.MaxDailyLossPercent < 0 || c.Risk.MaxDailyLossPercent > 100 {
		return fmt.Errorf("risk.max_daily_loss_percent must be in [0, 100], got %v", c.Risk.MaxDailyLossPercent)
	}
	if c.Strategy.ConfidenceThreshold < 0 || c.Strategy.ConfidenceThreshold > 1 {
		return fmt.Errorf("strategy.confidence_threshold must be in [0, 1], got %v", c.Strategy.ConfidenceThreshold)
	}
	if _, err := strategies.ByName(c.Strategy.Name); err != nil {
		return fmt.Errorf("strategy.name: %w", err)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path must not be empty")
	}
	return nil
}

// ValidateCredentials checks that the broker credentials are present.
// Called only by commands that talk to the broker.
func (c *Config) ValidateCredentials() error {
	if c.OANDA.APIKey == "" {
		return fmt.Errorf("OANDA_API_KEY is not set")
	}
	if c.OANDA.AccountID == "" {
		return fmt.Errorf("OANDA_ACCOUNT_ID is not set")
	}
	return nil
}
