package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AegisAIOWNER/oanda-trader/bot"
	"github.com/AegisAIOWNER/oanda-trader/broker/oanda"
	"github.com/AegisAIOWNER/oanda-trader/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	Long: `Run the automated trading loop against the configured OANDA account.

The loop polls candles for each configured instrument, generates signals,
sizes positions against margin and risk limits, and places market orders
with stop loss and take profit attached.

Example:
  OANDA_API_KEY=... OANDA_ACCOUNT_ID=... trader run -f config.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	client := oanda.NewClient(cfg.OANDA.APIKey, cfg.OANDA.AccountID, cfg.OANDA.Practice(), log)

	j, err := journal.NewSQLite(cfg.Journal.DBPath, log)
	if err != nil {
		return err
	}
	defer j.Close()

	b, err := bot.New(cfg, client, j, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting trader (%s environment, %d instruments)\n",
		cfg.OANDA.Environment, len(cfg.Trading.Instruments))

	err = b.Run(ctx)
	switch {
	case errors.Is(err, bot.ErrDailyLossLimit):
		fmt.Println("Stopped: daily loss limit reached")
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Println("Stopped")
		return nil
	default:
		return err
	}
}
