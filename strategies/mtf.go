package strategies

import (
	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/indicators"
	"github.com/AegisAIOWNER/oanda-trader/market"
)

// Confidence adjustments applied by higher-timeframe confirmation.
const (
	boostStrong    = 0.15  // trend and signal both align
	boostModerate  = 0.10  // trend aligns, no higher-timeframe signal
	boostWeak      = 0.05  // signal aligns, trend neutral
	penaltyAgainst = -0.15 // trend contradicts
	penaltyNeutral = -0.05 // nothing aligns

	// minConfirmedConfidence rejects signals whose adjusted confidence
	// falls below the tradeable threshold.
	minConfirmedConfidence = 0.6

	trendWarmup = 50
)

// Confirmer cross-checks a primary-timeframe signal against a higher
// timeframe before it is allowed to trade. It boosts confidence when the
// higher timeframe agrees and cuts it when the trend runs the other way.
type Confirmer struct {
	strategy Strategy
	log      *zap.Logger
}

// NewConfirmer creates a Confirmer that runs the given strategy on the
// higher-timeframe candles. A nil logger disables logging.
func NewConfirmer(strategy Strategy, log *zap.Logger) *Confirmer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Confirmer{strategy: strategy, log: log}
}

// TrendDirection reads the overall direction of a candle window by majority
// vote of MACD line-versus-signal, close-versus-Bollinger-middle, and
// RSI-versus-50. An empty Side means the trend is neutral or there is not
// enough history.
func TrendDirection(candles []market.Candle) Side {
	if len(candles) < trendWarmup {
		return ""
	}

	macd := indicators.NewMACD(12, 26, 9)
	bb := indicators.NewBollinger(20, 2)
	rsi := indicators.NewRSI(14)
	for _, ind := range []indicators.Indicator{macd, bb, rsi} {
		indicators.Warm(ind, candles)
	}
	if !macd.Ready() || !bb.Ready() || !rsi.Ready() {
		return ""
	}

	last := candles[len(candles)-1].Close

	var buy, sell int
	if macd.Line() > macd.Signal() {
		buy++
	} else if macd.Line() < macd.Signal() {
		sell++
	}
	if last > bb.Middle() {
		buy++
	} else if last < bb.Middle() {
		sell++
	}
	if rsi.Value() > 50 {
		buy++
	} else if rsi.Value() < 50 {
		sell++
	}

	switch {
	case buy > sell:
		return Buy
	case sell > buy:
		return Sell
	default:
		return ""
	}
}

// Confirm adjusts the primary signal's confidence using the higher-timeframe
// candles and returns the confirmed signal, or nil when the adjusted
// confidence drops below the tradeable threshold. The input signal is not
// modified.
func (c *Confirmer) Confirm(instrument string, primary *Signal, higher []market.Candle, meta market.InstrumentMeta) *Signal {
	if primary == nil {
		return nil
	}

	trend := TrendDirection(higher)

	var htfSide Side
	if htf := c.strategy.Analyze(higher, meta); htf != nil {
		htfSide = htf.Side
	}

	var boost float64
	switch {
	case trend == primary.Side && htfSide == primary.Side:
		boost = boostStrong
		c.log.Info("strong higher-timeframe confirmation",
			zap.String("instrument", instrument),
			zap.String("side", string(primary.Side)))
	case trend == primary.Side:
		boost = boostModerate
		c.log.Info("moderate higher-timeframe confirmation",
			zap.String("instrument", instrument),
			zap.String("side", string(primary.Side)))
	case htfSide == primary.Side && trend == "":
		boost = boostWeak
		c.log.Info("weak higher-timeframe confirmation",
			zap.String("instrument", instrument),
			zap.String("side", string(primary.Side)))
	case trend != "" && trend != primary.Side:
		boost = penaltyAgainst
		c.log.Warn("higher-timeframe contradiction",
			zap.String("instrument", instrument),
			zap.String("side", string(primary.Side)),
			zap.String("trend", string(trend)))
	default:
		boost = penaltyNeutral
		c.log.Info("no higher-timeframe confirmation",
			zap.String("instrument", instrument),
			zap.String("side", string(primary.Side)))
	}

	adjusted := primary.Confidence + boost
	if adjusted > 1 {
		adjusted = 1
	}
	if adjusted < 0 {
		adjusted = 0
	}

	if adjusted < minConfirmedConfidence {
		c.log.Info("signal rejected after higher-timeframe analysis",
			zap.String("instrument", instrument),
			zap.Float64("confidence", adjusted))
		return nil
	}

	confirmed := *primary
	confirmed.Confidence = adjusted
	return &confirmed
}
