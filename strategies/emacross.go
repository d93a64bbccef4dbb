package strategies

import (
	"github.com/AegisAIOWNER/oanda-trader/indicators"
	"github.com/AegisAIOWNER/oanda-trader/market"
)

// EMACrossConfig tunes the fast/slow EMA crossover strategy.
type EMACrossConfig struct {
	FastPeriod int     `yaml:"fast-period"`
	SlowPeriod int     `yaml:"slow-period"`
	StopPips   float64 `yaml:"stop-pips"`
	RR         float64 `yaml:"risk-reward"` // take-profit multiple of the stop
}

// EMACrossDefaults returns the standard crossover parameters.
func EMACrossDefaults() EMACrossConfig {
	return EMACrossConfig{
		FastPeriod: 10,
		SlowPeriod: 30,
		StopPips:   20,
		RR:         2.0,
	}
}

func (c EMACrossConfig) withDefaults() EMACrossConfig {
	d := EMACrossDefaults()
	if c.FastPeriod <= 0 {
		c.FastPeriod = d.FastPeriod
	}
	if c.SlowPeriod <= 0 {
		c.SlowPeriod = d.SlowPeriod
	}
	if c.StopPips <= 0 {
		c.StopPips = d.StopPips
	}
	if c.RR <= 0 {
		c.RR = d.RR
	}
	return c
}

// EMACross signals when the fast EMA crosses the slow EMA on the latest
// closed candle. It only fires on the candle where the cross happens, so
// a persistent trend does not retrigger every cycle.
type EMACross struct {
	cfg EMACrossConfig
}

// NewEMACross creates the crossover strategy.
func NewEMACross(cfg EMACrossConfig) *EMACross {
	return &EMACross{cfg: cfg.withDefaults()}
}

func (e *EMACross) Name() string { return "ema-cross" }

func (e *EMACross) Warmup() int {
	return e.cfg.SlowPeriod + 1
}

func (e *EMACross) Analyze(candles []market.Candle, meta market.InstrumentMeta) *Signal {
	if len(candles) < e.Warmup() {
		return nil
	}

	fast := indicators.NewEMA(e.cfg.FastPeriod)
	slow := indicators.NewEMA(e.cfg.SlowPeriod)

	// Warm on everything but the last candle to capture the prior diff,
	// then apply the last candle and compare.
	indicators.Warm(fast, candles[:len(candles)-1])
	indicators.Warm(slow, candles[:len(candles)-1])
	if !fast.Ready() || !slow.Ready() {
		return nil
	}
	prevDiff := fast.Value() - slow.Value()

	last := candles[len(candles)-1]
	fast.Update(last)
	slow.Update(last)
	diff := fast.Value() - slow.Value()

	var side Side
	switch {
	case diff > 0 && prevDiff <= 0:
		side = Buy
	case diff < 0 && prevDiff >= 0:
		side = Sell
	default:
		return nil
	}

	return &Signal{
		Side:       side,
		Confidence: 0.7,
		StopPips:   e.cfg.StopPips,
		TargetPips: e.cfg.StopPips * e.cfg.RR,
	}
}
