package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AegisAIOWNER/oanda-trader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the trade journal",
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent trades",
	RunE:  runJournalRecent,
}

var journalPerfCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show aggregate performance over a window",
	RunE:  runJournalPerformance,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export trades as CSV",
	RunE:  runJournalExport,
}

var journalFlags struct {
	limit int
	days  int
	out   string
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRecentCmd, journalPerfCmd, journalExportCmd)

	journalRecentCmd.Flags().IntVar(&journalFlags.limit, "limit", 20, "number of trades to show")
	journalPerfCmd.Flags().IntVar(&journalFlags.days, "days", 30, "window size in days")
	journalExportCmd.Flags().IntVar(&journalFlags.limit, "limit", 1000, "number of trades to export")
	journalExportCmd.Flags().StringVar(&journalFlags.out, "out", "", "output file (default stdout)")
}

func openJournal() (*journal.SQLite, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return journal.NewSQLite(cfg.Journal.DBPath, nil)
}

func runJournalRecent(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.Recent(journalFlags.limit)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("No trades recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RECENT TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Instrument", "Signal", "Conf", "Units", "Entry", "Exit", "P/L", "Status"})
	for _, tr := range trades {
		exit := "-"
		pl := "-"
		if tr.Status == journal.StatusClosed {
			exit = fmt.Sprintf("%.5f", tr.ExitPrice)
			pl = fmt.Sprintf("%.2f", tr.ProfitLoss)
		}
		t.AppendRow(table.Row{
			tr.Time.Format("2006-01-02 15:04"),
			tr.Instrument,
			tr.Signal,
			fmt.Sprintf("%.2f", tr.Confidence),
			fmt.Sprintf("%.0f", tr.Units),
			fmt.Sprintf("%.5f", tr.EntryPrice),
			exit,
			pl,
			tr.Status,
		})
	}
	t.Render()
	return nil
}

func runJournalPerformance(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	p, err := j.Performance(journalFlags.days)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PERFORMANCE (last %d days)", journalFlags.days)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Total trades", p.TotalTrades},
		{"Winners / losers", fmt.Sprintf("%d / %d", p.WinningTrades, p.LosingTrades)},
		{"Win rate", fmt.Sprintf("%.1f%%", p.WinRate*100)},
		{"Total profit", fmt.Sprintf("%.2f", p.TotalProfit)},
		{"Average win", fmt.Sprintf("%.2f", p.AverageProfit)},
		{"Average loss", fmt.Sprintf("%.2f", p.AverageLoss)},
		{"Largest win", fmt.Sprintf("%.2f", p.LargestWin)},
		{"Largest loss", fmt.Sprintf("%.2f", p.LargestLoss)},
	})
	t.Render()
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.Recent(journalFlags.limit)
	if err != nil {
		return err
	}

	out := os.Stdout
	if journalFlags.out != "" {
		f, err := os.Create(journalFlags.out)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return journal.ExportCSV(out, trades)
}
