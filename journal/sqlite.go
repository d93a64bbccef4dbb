package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/pkg/id"
)

// SQLite stores the journal in a single database file. Safe for use from
// one process; the underlying sql.DB serializes access.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens (creating if needed) the journal database at path.
// A nil logger disables logging.
func NewSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	log.Info("journal database ready", zap.String("path", path))
	return &SQLite{db: db, log: log}, nil
}

func (j *SQLite) RecordOpen(t TradeRecord) error {
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.Time.IsZero() {
		t.Time = id.Time(t.ID)
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(id, time, instrument, signal, confidence, entry_price, stop_loss,
		 take_profit, units, atr, risk_pct, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Time.UTC(), t.Instrument, t.Signal, t.Confidence,
		t.EntryPrice, t.StopLoss, t.TakeProfit, t.Units, t.ATR,
		t.RiskPct, t.Status,
	)
	if err != nil {
		return fmt.Errorf("record trade %s: %w", t.ID, err)
	}
	return nil
}

func (j *SQLite) RecordClose(id string, exitPrice, profitLoss float64, exitTime time.Time) error {
	res, err := j.db.Exec(`
		UPDATE trades
		SET exit_price = ?, exit_time = ?, profit_loss = ?, status = ?
		WHERE id = ?`,
		exitPrice, exitTime.UTC(), profitLoss, StatusClosed, id,
	)
	if err != nil {
		return fmt.Errorf("close trade %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		j.log.Warn("closing unknown trade", zap.String("id", id))
	}
	return nil
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, nav, margin_used, margin_available, open_positions, total_risk)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Balance, e.NAV, e.MarginUsed, e.MarginAvailable,
		e.OpenPositions, e.TotalRisk,
	)
	if err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

// Recent returns up to limit trades, newest first.
func (j *SQLite) Recent(limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Query(selectTrades+`
		ORDER BY time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	return scanTrades(rows)
}

// OpenTrades returns trades that have not been closed, oldest first.
func (j *SQLite) OpenTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(selectTrades+`
		WHERE status = ? ORDER BY time`, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("query open trades: %w", err)
	}
	return scanTrades(rows)
}

// Performance aggregates closed trades from the last days days.
// An empty window returns a zero Performance, not an error.
func (j *SQLite) Performance(days int) (Performance, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var p Performance
	err := j.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN profit_loss > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN profit_loss < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(profit_loss), 0),
		       COALESCE(AVG(CASE WHEN profit_loss > 0 THEN profit_loss END), 0),
		       COALESCE(AVG(CASE WHEN profit_loss < 0 THEN profit_loss END), 0),
		       COALESCE(MAX(profit_loss), 0),
		       COALESCE(MIN(profit_loss), 0)
		FROM trades
		WHERE status = ? AND time >= ?`,
		StatusClosed, cutoff,
	).Scan(&p.TotalTrades, &p.WinningTrades, &p.LosingTrades, &p.TotalProfit,
		&p.AverageProfit, &p.AverageLoss, &p.LargestWin, &p.LargestLoss)
	if err != nil {
		return Performance{}, fmt.Errorf("query performance: %w", err)
	}

	if p.TotalTrades > 0 {
		p.WinRate = float64(p.WinningTrades) / float64(p.TotalTrades)
	}
	return p, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

const selectTrades = `
	SELECT id, time, instrument, signal, confidence, entry_price, stop_loss,
	       take_profit, units, atr, risk_pct, exit_price, exit_time,
	       profit_loss, status
	FROM trades`

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			t          TradeRecord
			exitPrice  sql.NullFloat64
			exitTime   sql.NullTime
			profitLoss sql.NullFloat64
		)
		if err := rows.Scan(&t.ID, &t.Time, &t.Instrument, &t.Signal,
			&t.Confidence, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
			&t.Units, &t.ATR, &t.RiskPct,
			&exitPrice, &exitTime, &profitLoss, &t.Status); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.ExitPrice = exitPrice.Float64
		t.ExitTime = exitTime.Time
		t.ProfitLoss = profitLoss.Float64
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}
