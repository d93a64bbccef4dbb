// Package journal persists the trade history and equity snapshots that
// feed performance-based sizing and the reporting CLI.
package journal

import (
	"time"

	"github.com/AegisAIOWNER/oanda-trader/sizing"
)

// Trade lifecycle states.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// TradeRecord is one trade from signal to exit. Exit fields stay zero while
// the trade is open.
type TradeRecord struct {
	ID         string // ULID, time-sortable
	Time       time.Time
	Instrument string
	Signal     string // BUY or SELL
	Confidence float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Units      float64
	ATR        float64
	RiskPct    float64
	ExitPrice  float64
	ExitTime   time.Time
	ProfitLoss float64
	Status     string
}

// EquitySnapshot is a point-in-time account and ledger reading, recorded
// once per trading cycle.
type EquitySnapshot struct {
	Time            time.Time
	Balance         float64
	NAV             float64
	MarginUsed      float64
	MarginAvailable float64
	OpenPositions   int
	TotalRisk       float64
}

// Journal records trading activity.
type Journal interface {
	RecordOpen(TradeRecord) error
	RecordClose(id string, exitPrice, profitLoss float64, exitTime time.Time) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Performance aggregates closed trades over a window.
type Performance struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	AverageProfit float64
	AverageLoss   float64
	LargestWin    float64
	LargestLoss   float64
}

// Metrics converts the aggregate into the sizing layer's input form.
func (p Performance) Metrics() sizing.PerformanceMetrics {
	return sizing.PerformanceMetrics{
		WinRate:       p.WinRate,
		AverageProfit: p.AverageProfit,
		AverageLoss:   p.AverageLoss,
		TotalTrades:   p.TotalTrades,
	}
}
