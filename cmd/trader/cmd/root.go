package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/config"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "A risk-bounded automated FX trading client for OANDA",
	Long: `Trader is an automated foreign-exchange trading client for the OANDA
v20 REST API.

It provides:
  - Signal generation with multi-timeframe confirmation
  - Margin- and risk-aware position sizing with a full audit trail
  - A portfolio risk ledger with hard exposure limits
  - A SQLite trade journal feeding performance-based sizing
  - Prometheus metrics for live monitoring

Credentials come from the environment (OANDA_API_KEY, OANDA_ACCOUNT_ID),
never from the config file.`,
	SilenceUsage: true,
}

var (
	cfgPath string
	verbose bool
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads the config file when one was given, otherwise starts from
// defaults, then overlays environment credentials.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
