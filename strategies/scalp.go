package strategies

import (
	"github.com/AegisAIOWNER/oanda-trader/indicators"
	"github.com/AegisAIOWNER/oanda-trader/market"
)

// ScalpConfig tunes the scalping strategy. Zero values are filled from
// ScalpDefaults.
type ScalpConfig struct {
	RSIPeriod     int     `yaml:"rsi-period"`
	RSIOversold   float64 `yaml:"rsi-oversold"`
	RSIOverbought float64 `yaml:"rsi-overbought"`

	MACDFast   int `yaml:"macd-fast"`
	MACDSlow   int `yaml:"macd-slow"`
	MACDSignal int `yaml:"macd-signal"`

	BBPeriod  int     `yaml:"bb-period"`
	BBStdDevs float64 `yaml:"bb-std-devs"`

	ATRPeriod           int     `yaml:"atr-period"`
	ATRStopMultiplier   float64 `yaml:"atr-stop-multiplier"`
	ATRProfitMultiplier float64 `yaml:"atr-profit-multiplier"`

	// MinStopPips floors the ATR-derived stop so quiet markets never
	// produce stops tighter than the broker will accept.
	MinStopPips float64 `yaml:"min-stop-pips"`
}

// ScalpDefaults returns the standard scalping parameters.
func ScalpDefaults() ScalpConfig {
	return ScalpConfig{
		RSIPeriod:           14,
		RSIOversold:         30,
		RSIOverbought:       70,
		MACDFast:            12,
		MACDSlow:            26,
		MACDSignal:          9,
		BBPeriod:            20,
		BBStdDevs:           2,
		ATRPeriod:           14,
		ATRStopMultiplier:   0.5,
		ATRProfitMultiplier: 1.5,
		MinStopPips:         5,
	}
}

func (c ScalpConfig) withDefaults() ScalpConfig {
	d := ScalpDefaults()
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.RSIOversold <= 0 {
		c.RSIOversold = d.RSIOversold
	}
	if c.RSIOverbought <= 0 {
		c.RSIOverbought = d.RSIOverbought
	}
	if c.MACDFast <= 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = d.BBPeriod
	}
	if c.BBStdDevs <= 0 {
		c.BBStdDevs = d.BBStdDevs
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.ATRStopMultiplier <= 0 {
		c.ATRStopMultiplier = d.ATRStopMultiplier
	}
	if c.ATRProfitMultiplier <= 0 {
		c.ATRProfitMultiplier = d.ATRProfitMultiplier
	}
	if c.MinStopPips <= 0 {
		c.MinStopPips = d.MinStopPips
	}
	return c
}

// Scalp votes three indicators on the latest closed candle: RSI extremes,
// MACD histogram direction, and price position against the Bollinger bands.
// Two or more concordant votes produce a signal; each vote past the first
// raises confidence. Stop and target distances scale with ATR.
type Scalp struct {
	cfg ScalpConfig
}

// NewScalp creates the scalping strategy.
func NewScalp(cfg ScalpConfig) *Scalp {
	return &Scalp{cfg: cfg.withDefaults()}
}

func (s *Scalp) Name() string { return "scalp" }

func (s *Scalp) Warmup() int {
	w := s.cfg.MACDSlow + s.cfg.MACDSignal
	if s.cfg.BBPeriod > w {
		w = s.cfg.BBPeriod
	}
	if s.cfg.RSIPeriod+1 > w {
		w = s.cfg.RSIPeriod + 1
	}
	if s.cfg.ATRPeriod+1 > w {
		w = s.cfg.ATRPeriod + 1
	}
	return w
}

func (s *Scalp) Analyze(candles []market.Candle, meta market.InstrumentMeta) *Signal {
	if len(candles) < s.Warmup() {
		return nil
	}

	rsi := indicators.NewRSI(s.cfg.RSIPeriod)
	macd := indicators.NewMACD(s.cfg.MACDFast, s.cfg.MACDSlow, s.cfg.MACDSignal)
	bb := indicators.NewBollinger(s.cfg.BBPeriod, s.cfg.BBStdDevs)
	atr := indicators.NewATR(s.cfg.ATRPeriod)
	for _, ind := range []indicators.Indicator{rsi, macd, bb, atr} {
		indicators.Warm(ind, candles)
	}
	if !rsi.Ready() || !macd.Ready() || !bb.Ready() || !atr.Ready() {
		return nil
	}

	last := candles[len(candles)-1].Close

	var buy, sell int
	if rsi.Value() < s.cfg.RSIOversold {
		buy++
	} else if rsi.Value() > s.cfg.RSIOverbought {
		sell++
	}
	if macd.Histogram() > 0 {
		buy++
	} else if macd.Histogram() < 0 {
		sell++
	}
	if last < bb.Lower() {
		buy++
	} else if last > bb.Upper() {
		sell++
	}

	var side Side
	var votes int
	switch {
	case buy >= 2 && buy > sell:
		side, votes = Buy, buy
	case sell >= 2 && sell > buy:
		side, votes = Sell, sell
	default:
		return nil
	}

	confidence := 0.5 + 0.15*float64(votes-1)
	if confidence > 1 {
		confidence = 1
	}

	pip := meta.PipSize()
	stopPips := atr.Value() * s.cfg.ATRStopMultiplier / pip
	if stopPips < s.cfg.MinStopPips {
		stopPips = s.cfg.MinStopPips
	}
	// Keep the reward ratio when the stop was floored.
	targetPips := atr.Value() * s.cfg.ATRProfitMultiplier / pip
	if floor := stopPips * s.cfg.ATRProfitMultiplier / s.cfg.ATRStopMultiplier; targetPips < floor {
		targetPips = floor
	}

	return &Signal{
		Side:       side,
		Confidence: confidence,
		StopPips:   stopPips,
		TargetPips: targetPips,
		ATR:        atr.Value(),
	}
}
