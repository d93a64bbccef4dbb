// Package indicators provides streaming technical analysis indicators.
// Each indicator consumes closed candles one at a time, so the same code
// serves live polling and historical warmup.
package indicators

import "github.com/AegisAIOWNER/oanda-trader/market"

// Indicator computes a single streaming value from candles. Deterministic:
// the same candle sequence always produces the same value.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful.
	Ready() bool
}

// ValueF64 is implemented by indicators exposing a single float value.
// Callers should always check Ready() first.
type ValueF64 interface {
	Value() float64
}

// Warm feeds a candle history through an indicator.
func Warm(ind Indicator, candles []market.Candle) {
	for _, c := range candles {
		ind.Update(c)
	}
}
