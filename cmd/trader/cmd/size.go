package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AegisAIOWNER/oanda-trader/market"
	"github.com/AegisAIOWNER/oanda-trader/sizing"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Compute a position size and print the full constraint trace",
	Long: `Compute an auto-scaled position size offline and print every
intermediate constraint value, so a sizing decision can be audited without
touching the broker.

Example:
  trader size --instrument EUR_USD --balance 10000 --margin 5000 \
    --price 1.0850 --stop-pips 10 --confidence 0.8`,
	RunE: runSize,
}

var sizeFlags struct {
	instrument string
	currency   string
	balance    float64
	margin     float64
	price      float64
	stopPips   float64
	confidence float64
	risk       float64
	buffer     float64
}

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVar(&sizeFlags.instrument, "instrument", "EUR_USD", "instrument to size")
	sizeCmd.Flags().StringVar(&sizeFlags.currency, "currency", "USD", "account currency for pip value conversion")
	sizeCmd.Flags().Float64Var(&sizeFlags.balance, "balance", 0, "account balance (required)")
	sizeCmd.Flags().Float64Var(&sizeFlags.margin, "margin", 0, "available margin (required)")
	sizeCmd.Flags().Float64Var(&sizeFlags.price, "price", 0, "current price (required)")
	sizeCmd.Flags().Float64Var(&sizeFlags.stopPips, "stop-pips", 10, "stop loss distance in pips")
	sizeCmd.Flags().Float64Var(&sizeFlags.confidence, "confidence", 1.0, "signal confidence 0-1")
	sizeCmd.Flags().Float64Var(&sizeFlags.risk, "risk", 0, "risk per trade fraction (0 uses config)")
	sizeCmd.Flags().Float64Var(&sizeFlags.buffer, "buffer", 0, "margin buffer fraction 0-1")
	sizeCmd.MarkFlagRequired("balance")
	sizeCmd.MarkFlagRequired("margin")
	sizeCmd.MarkFlagRequired("price")
}

func runSize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	meta := market.Lookup(sizeFlags.instrument)
	pip := meta.PipSize()
	pipValue := pip * market.QuoteToAccountRate(meta, sizeFlags.currency, sizeFlags.price)

	sizer := sizing.New(sizing.Config{
		Method:        sizing.Method(cfg.Sizing.Method),
		RiskPerTrade:  cfg.Sizing.RiskPerTrade,
		KellyFraction: cfg.Sizing.KellyFraction,
		MinTradeValue: cfg.Sizing.MinTradeValue,
	}, nil)

	result := sizer.AutoScaledUnits(sizing.AutoScaleRequest{
		Balance:               sizeFlags.balance,
		AvailableMargin:       sizeFlags.margin,
		CurrentPrice:          sizeFlags.price,
		StopLossPips:          sizeFlags.stopPips,
		PipValue:              pipValue,
		MarginRate:            meta.MarginRate,
		MarginBuffer:          sizeFlags.buffer,
		MinimumTradeSize:      meta.MinimumTradeSize,
		TradeUnitsPrecision:   meta.TradeUnitsPrecision,
		MaximumOrderUnits:     meta.MaximumOrderUnits,
		MaxUnitsPerInstrument: cfg.Risk.MaxPositionUnits,
		RiskPerTrade:          sizeFlags.risk,
		Confidence:            sizeFlags.confidence,
	})

	tr := result.Trace
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("POSITION SIZING %s", sizeFlags.instrument)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Balance", fmt.Sprintf("%.2f", sizeFlags.balance)},
		{"Available margin", fmt.Sprintf("%.2f", sizeFlags.margin)},
		{"Effective margin", fmt.Sprintf("%.2f", tr.EffectiveAvailableMargin)},
		{"Current price", fmt.Sprintf("%.5f", sizeFlags.price)},
		{"Margin per unit", fmt.Sprintf("%.6f", tr.MarginPerUnit)},
		{"Units by margin", fmt.Sprintf("%.0f", tr.UnitsByMargin)},
		{"Risk amount", fmt.Sprintf("%.2f", tr.RiskAmount)},
		{"Risk per unit", fmt.Sprintf("%.6f", tr.RiskPerUnit)},
		{"Units by risk", fmt.Sprintf("%.0f", tr.UnitsByRisk)},
		{"Raw candidate", fmt.Sprintf("%.2f", tr.RawCandidate)},
		{"Rounded candidate", fmt.Sprintf("%.2f", tr.RoundedCandidate)},
		{"Trade value", fmt.Sprintf("%.2f", tr.TradeValue)},
		{"Limited by", tr.LimitedBy},
	})
	t.AppendSeparator()
	if result.Skipped() {
		t.AppendRow(table.Row{"SKIPPED", tr.SkipReason})
	} else {
		t.AppendRow(table.Row{"Units", fmt.Sprintf("%.0f", result.Units)})
		t.AppendRow(table.Row{"Risk %", fmt.Sprintf("%.2f%%", result.RiskPct*100)})
	}
	t.Render()

	return nil
}
