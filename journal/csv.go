package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"id", "time", "instrument", "signal", "confidence", "entry_price",
	"stop_loss", "take_profit", "units", "atr", "risk_pct",
	"exit_price", "exit_time", "profit_loss", "status",
}

// ExportCSV writes trades to w with a header row. Times are RFC3339; an
// open trade's exit time is left empty.
func ExportCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		exitTime := ""
		if !t.ExitTime.IsZero() {
			exitTime = t.ExitTime.UTC().Format(time.RFC3339)
		}
		err := cw.Write([]string{
			t.ID,
			t.Time.UTC().Format(time.RFC3339),
			t.Instrument,
			t.Signal,
			f(t.Confidence),
			f(t.EntryPrice),
			f(t.StopLoss),
			f(t.TakeProfit),
			f(t.Units),
			f(t.ATR),
			f(t.RiskPct),
			f(t.ExitPrice),
			exitTime,
			f(t.ProfitLoss),
			t.Status,
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
