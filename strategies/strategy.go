// Package strategies turns candle history into trade signals. A strategy
// is pure over its inputs: the same candles always yield the same signal,
// which keeps live trading and tests on identical code paths.
package strategies

import (
	"fmt"
	"strings"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// Side is the direction of a signal.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Signal is a trade recommendation with its sizing inputs. StopPips and
// TargetPips are already scaled to the instrument's pip size.
type Signal struct {
	Side       Side
	Confidence float64 // 0.0 to 1.0
	StopPips   float64
	TargetPips float64
	ATR        float64 // raw ATR in price units, for monitoring and trailing
}

// Strategy analyzes a candle window and returns a signal, or nil when
// nothing is actionable.
type Strategy interface {
	// Name returns a stable identifier for logging and the journal.
	Name() string

	// Warmup returns the minimum candle count Analyze needs.
	Warmup() int

	// Analyze inspects the candles (oldest first) for the given instrument.
	// A nil result means no signal this cycle.
	Analyze(candles []market.Candle, meta market.InstrumentMeta) *Signal
}

// ByName constructs a strategy from its config name.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "scalp", "advanced_scalp":
		return NewScalp(ScalpDefaults()), nil
	case "ema-cross", "emacross":
		return NewEMACross(EMACrossDefaults()), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: scalp, ema-cross)", name)
	}
}
