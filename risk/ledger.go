// Package risk tracks portfolio exposure: which instruments are open, how
// much account currency is at risk, and how positions cluster by base
// currency. It gates every new position against the configured limits.
package risk

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// Limits are the portfolio-level risk constraints. Zero values take the
// defaults below.
type Limits struct {
	MaxOpenPositions       int
	MaxRiskPerTrade        float64 // fraction of balance
	MaxTotalRisk           float64 // fraction of balance
	MaxCorrelatedPositions int     // positions sharing a base currency
	MaxUnitsPerInstrument  float64
}

func (l Limits) withDefaults() Limits {
	if l.MaxOpenPositions <= 0 {
		l.MaxOpenPositions = 3
	}
	if l.MaxRiskPerTrade <= 0 {
		l.MaxRiskPerTrade = 0.02
	}
	if l.MaxTotalRisk <= 0 {
		l.MaxTotalRisk = 0.10
	}
	if l.MaxCorrelatedPositions <= 0 {
		l.MaxCorrelatedPositions = 2
	}
	if l.MaxUnitsPerInstrument <= 0 {
		l.MaxUnitsPerInstrument = 100_000
	}
	return l
}

// Position is one open position as the ledger tracks it.
type Position struct {
	Instrument   string
	Units        float64 // signed; negative is short
	RiskAmount   float64 // account currency reserved against this position
	UnrealizedPL float64
	OpenedAt     time.Time
}

// BrokerPosition is the slice of broker position state SyncFromBroker
// consumes. The broker snapshot does not carry risk amounts.
type BrokerPosition struct {
	Instrument   string
	Units        float64 // net units, signed
	UnrealizedPL float64
}

// Ledger is the mutable registry of open positions. An instrument is either
// present (open) or absent (closed); there are no intermediate states. The
// mutex exists because the position-monitor goroutine reads the ledger while
// the decision loop mutates it.
type Ledger struct {
	mu     sync.Mutex
	limits Limits
	log    *zap.Logger

	positions map[string]Position
	totalRisk float64
	groups    map[string][]string // base currency -> open instruments
}

// NewLedger returns an empty ledger with limit defaults applied. A nil
// logger is replaced with a no-op logger.
func NewLedger(limits Limits, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{
		limits:    limits.withDefaults(),
		log:       log,
		positions: make(map[string]Position),
		groups:    make(map[string][]string),
	}
	l.log.Info("risk ledger initialized",
		zap.Int("max_positions", l.limits.MaxOpenPositions),
		zap.Float64("max_risk_per_trade", l.limits.MaxRiskPerTrade),
		zap.Float64("max_total_risk", l.limits.MaxTotalRisk))
	return l
}

// Limits returns the effective limits.
func (l *Ledger) Limits() Limits { return l.limits }

// CanOpen checks a candidate position against the portfolio limits. Checks
// run in a fixed order and the first failure wins; the returned reason is
// specific to the failing check. It never mutates state.
func (l *Ledger) CanOpen(instrument string, units, riskAmount, balance float64) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.positions) >= l.limits.MaxOpenPositions {
		return false, fmt.Sprintf("Maximum open positions reached: %d/%d",
			len(l.positions), l.limits.MaxOpenPositions)
	}

	if _, exists := l.positions[instrument]; exists {
		return false, fmt.Sprintf("Position already open in %s", instrument)
	}

	absUnits := units
	if absUnits < 0 {
		absUnits = -absUnits
	}
	if absUnits > l.limits.MaxUnitsPerInstrument {
		return false, fmt.Sprintf("Units %.0f exceeds maximum %.0f for %s",
			absUnits, l.limits.MaxUnitsPerInstrument, instrument)
	}

	if balance > 0 {
		riskPct := riskAmount / balance
		if riskPct > l.limits.MaxRiskPerTrade {
			return false, fmt.Sprintf("Risk per trade (%.2f%%) exceeds maximum (%.2f%%)",
				riskPct*100, l.limits.MaxRiskPerTrade*100)
		}

		newTotal := (l.totalRisk + riskAmount) / balance
		if newTotal > l.limits.MaxTotalRisk {
			return false, fmt.Sprintf("Total risk (%.2f%%) would exceed maximum (%.2f%%)",
				newTotal*100, l.limits.MaxTotalRisk*100)
		}
	}

	base := market.BaseCurrency(instrument)
	if len(l.groups[base]) >= l.limits.MaxCorrelatedPositions {
		return false, fmt.Sprintf("Too many positions with %s: %d/%d",
			base, len(l.groups[base]), l.limits.MaxCorrelatedPositions)
	}

	return true, "OK to open position"
}

// Register records a newly opened position. The ledger trusts that CanOpen
// was consulted first: registering an instrument that is already open
// overwrites the entry and double-counts its risk, which is a caller error
// and is logged as such.
func (l *Ledger) Register(instrument string, units, riskAmount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.positions[instrument]; exists {
		l.log.Warn("position already registered, overwriting",
			zap.String("instrument", instrument))
	}

	l.positions[instrument] = Position{
		Instrument: instrument,
		Units:      units,
		RiskAmount: riskAmount,
		OpenedAt:   time.Now().UTC(),
	}
	l.totalRisk += riskAmount
	l.addToGroup(instrument)

	l.log.Info("registered position",
		zap.String("instrument", instrument),
		zap.Float64("units", units),
		zap.Float64("risk_amount", riskAmount),
		zap.Int("open_positions", len(l.positions)))
}

// ClosePosition removes a position and releases its reserved risk. The
// aggregate is floored at zero so inconsistent state cannot drive it
// negative. Closing an unknown instrument is a warning, not an error.
func (l *Ledger) ClosePosition(instrument string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.positions[instrument]
	if !exists {
		l.log.Warn("attempted to close position that is not open",
			zap.String("instrument", instrument))
		return
	}

	delete(l.positions, instrument)
	l.totalRisk -= pos.RiskAmount
	if l.totalRisk < 0 {
		l.totalRisk = 0
	}
	l.removeFromGroup(instrument)

	l.log.Info("closed position",
		zap.String("instrument", instrument),
		zap.Int("open_positions", len(l.positions)))
}

// SyncFromBroker replaces the ledger's entire state with the broker's
// snapshot. The snapshot carries no risk amounts, so reserved risk for
// positions that survive the sync is lost until the next Register; this is
// an accepted cost of treating the broker as ground truth.
func (l *Ledger) SyncFromBroker(positions []BrokerPosition) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions = make(map[string]Position)
	l.totalRisk = 0
	l.groups = make(map[string][]string)

	for _, p := range positions {
		if p.Instrument == "" || p.Units == 0 {
			continue
		}
		l.positions[p.Instrument] = Position{
			Instrument:   p.Instrument,
			Units:        p.Units,
			UnrealizedPL: p.UnrealizedPL,
			OpenedAt:     time.Now().UTC(),
		}
		l.addToGroup(p.Instrument)
	}

	l.log.Debug("synced positions from broker",
		zap.Int("open_positions", len(l.positions)),
		zap.Strings("instruments", l.instrumentsLocked()))
}

// PositionInfo returns the tracked state for instrument, if open.
func (l *Ledger) PositionInfo(instrument string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[instrument]
	return pos, ok
}

// OpenPositions returns the number of currently open positions.
func (l *Ledger) OpenPositions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

// TotalRisk returns the aggregate reserved risk in account currency.
func (l *Ledger) TotalRisk() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalRisk
}

// Reset clears all state. Intended for tests and manual intervention.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = make(map[string]Position)
	l.totalRisk = 0
	l.groups = make(map[string][]string)
	l.log.Info("risk ledger reset")
}

func (l *Ledger) addToGroup(instrument string) {
	base := market.BaseCurrency(instrument)
	for _, in := range l.groups[base] {
		if in == instrument {
			return
		}
	}
	l.groups[base] = append(l.groups[base], instrument)
}

func (l *Ledger) removeFromGroup(instrument string) {
	base := market.BaseCurrency(instrument)
	group := l.groups[base]
	for i, in := range group {
		if in == instrument {
			l.groups[base] = append(group[:i], group[i+1:]...)
			break
		}
	}
	if len(l.groups[base]) == 0 {
		delete(l.groups, base)
	}
}

func (l *Ledger) instrumentsLocked() []string {
	out := make([]string, 0, len(l.positions))
	for in := range l.positions {
		out = append(out, in)
	}
	sort.Strings(out)
	return out
}
