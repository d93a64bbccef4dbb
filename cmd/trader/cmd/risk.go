package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AegisAIOWNER/oanda-trader/broker/oanda"
	"github.com/AegisAIOWNER/oanda-trader/risk"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Show current exposure against the configured risk limits",
	Long: `Fetch the account's open positions from OANDA and print the risk
ledger summary: open positions, aggregate risk, and remaining capacity.

Example:
  OANDA_API_KEY=... OANDA_ACCOUNT_ID=... trader risk -f config.yaml`,
	RunE: runRisk,
}

func init() {
	rootCmd.AddCommand(riskCmd)
}

func runRisk(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	client := oanda.NewClient(cfg.OANDA.APIKey, cfg.OANDA.AccountID, cfg.OANDA.Practice(), log)

	acct, err := client.Account(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}
	positions, err := client.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	ledger := risk.NewLedger(risk.Limits{
		MaxOpenPositions:       cfg.Risk.MaxOpenPositions,
		MaxRiskPerTrade:        cfg.Risk.MaxRiskPerPosition,
		MaxTotalRisk:           cfg.Risk.MaxTotalRisk,
		MaxCorrelatedPositions: cfg.Risk.MaxCorrelated,
		MaxUnitsPerInstrument:  cfg.Risk.MaxPositionUnits,
	}, log)

	brokerPositions := make([]risk.BrokerPosition, 0, len(positions))
	for _, p := range positions {
		brokerPositions = append(brokerPositions, risk.BrokerPosition{
			Instrument:   p.Instrument,
			Units:        p.Units,
			UnrealizedPL: p.UnrealizedPL,
		})
	}
	ledger.SyncFromBroker(brokerPositions)

	summary := ledger.Summary(acct.Balance)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RISK SUMMARY %s", acct.ID)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Balance", fmt.Sprintf("%.2f %s", acct.Balance, acct.Currency)},
		{"Unrealized P/L", fmt.Sprintf("%.2f", acct.UnrealizedPL)},
		{"Margin used", fmt.Sprintf("%.2f", acct.MarginUsed)},
		{"Margin available", fmt.Sprintf("%.2f", acct.MarginAvailable)},
		{"Open positions", fmt.Sprintf("%d / %d", summary.OpenPositions, summary.MaxPositions)},
		{"Positions available", summary.PositionsAvailable},
		{"Total risk", fmt.Sprintf("%.2f (%.2f%% of balance)", summary.TotalRiskAmount, summary.TotalRiskPct)},
		{"Risk capacity used", fmt.Sprintf("%.1f%% of %.1f%%", summary.RiskCapacityUsedPct, summary.MaxRiskPct)},
		{"Instruments", strings.Join(summary.Instruments, ", ")},
	})
	t.Render()

	if len(positions) > 0 {
		pt := table.NewWriter()
		pt.SetOutputMirror(os.Stdout)
		pt.SetTitle("OPEN POSITIONS")
		pt.SetStyle(table.StyleRounded)
		pt.AppendHeader(table.Row{"Instrument", "Units", "Unrealized P/L"})
		for _, p := range positions {
			pt.AppendRow(table.Row{p.Instrument, fmt.Sprintf("%.0f", p.Units), fmt.Sprintf("%.2f", p.UnrealizedPL)})
		}
		pt.Render()
	}

	return nil
}
