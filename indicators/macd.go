package indicators

import (
	"fmt"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// MACD is a streaming Moving Average Convergence Divergence indicator.
// Line() is fast EMA minus slow EMA; Signal() is an EMA of the line;
// Histogram() is their difference.
type MACD struct {
	fast   *ExponentialMA
	slow   *ExponentialMA
	signal *ExponentialMA
}

// NewMACD creates a MACD with the given periods (12, 26, 9 is conventional).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

func (m *MACD) Warmup() int {
	return m.slow.period + m.signal.period
}

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}

func (m *MACD) Update(c market.Candle) {
	m.fast.Update(c)
	m.slow.Update(c)
	if m.fast.Ready() && m.slow.Ready() {
		m.signal.updateValue(m.fast.Value() - m.slow.Value())
	}
}

func (m *MACD) Ready() bool {
	return m.signal.Ready()
}

// Line returns the MACD line (fast EMA - slow EMA).
func (m *MACD) Line() float64 {
	if !m.fast.Ready() || !m.slow.Ready() {
		return 0
	}
	return m.fast.Value() - m.slow.Value()
}

// Signal returns the signal line.
func (m *MACD) Signal() float64 {
	return m.signal.Value()
}

// Histogram returns line minus signal.
func (m *MACD) Histogram() float64 {
	if !m.Ready() {
		return 0
	}
	return m.Line() - m.Signal()
}

// Value returns the histogram, the single number most strategies key on.
func (m *MACD) Value() float64 {
	return m.Histogram()
}
