// Package sizing converts account and instrument state into order sizes that
// respect margin affordability, the per-trade risk cap, and the broker's
// minimum trade size and minimum trade value. Data-quality problems never
// return errors; they produce a zero-unit result with an inspectable skip
// reason.
package sizing

import (
	"math"

	"go.uber.org/zap"
)

// Method selects the sizing strategy used by PositionSize.
type Method string

const (
	FixedPercentage Method = "fixed_percentage"
	KellyCriterion  Method = "kelly_criterion"
)

const (
	// absoluteMinUnits is the hard floor applied to every computed size;
	// brokers reject dust orders well below this.
	absoluteMinUnits = 100

	// zeroStopFallbackUnits is returned by FixedPercentage when the stop
	// distance is zero and the risk formula is undefined.
	zeroStopFallbackUnits = 1000

	// fallbackMarginRate stands in for a missing or non-positive broker
	// margin rate (roughly 30:1 leverage).
	fallbackMarginRate = 0.0333

	// kellyMinTrades is the history length below which Kelly estimates are
	// too noisy to act on.
	kellyMinTrades = 30
)

// Config carries the sizer's tunables. Zero values are replaced with the
// defaults the bot ships with.
type Config struct {
	Method        Method
	RiskPerTrade  float64 // fraction of balance risked per trade, e.g. 0.02
	KellyFraction float64 // fractional Kelly safety factor, e.g. 0.25
	MinTradeValue float64 // minimum worst-case loss at stop, account currency
}

func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = FixedPercentage
	}
	if c.RiskPerTrade <= 0 {
		c.RiskPerTrade = 0.02
	}
	if c.KellyFraction <= 0 {
		c.KellyFraction = 0.25
	}
	return c
}

// PerformanceMetrics summarizes trade history for Kelly sizing. The journal's
// Performance query produces one.
type PerformanceMetrics struct {
	WinRate       float64
	AverageProfit float64
	AverageLoss   float64 // negative or positive; only magnitude is used
	TotalTrades   int
}

// Sizer is a stateless calculator; one instance per configuration.
type Sizer struct {
	cfg Config
	log *zap.Logger
}

// New returns a Sizer with cfg defaults applied. A nil logger is replaced
// with a no-op logger.
func New(cfg Config, log *zap.Logger) *Sizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sizer{cfg: cfg.withDefaults(), log: log}
}

// Config returns the effective configuration.
func (s *Sizer) Config() Config { return s.cfg }

// FixedPercentage sizes a position so the loss at stop equals
// RiskPerTrade of balance: floor(balance*risk / (stopPips*pipValue)),
// floored at the absolute minimum. A zero stop distance returns the
// fallback size instead of dividing by zero.
func (s *Sizer) FixedPercentage(balance, stopLossPips, pipValue float64) float64 {
	if stopLossPips <= 0 || pipValue <= 0 {
		s.log.Warn("stop distance is zero, using fallback position size",
			zap.Float64("stop_loss_pips", stopLossPips),
			zap.Float64("pip_value", pipValue))
		return zeroStopFallbackUnits
	}

	riskAmount := balance * s.cfg.RiskPerTrade
	units := math.Floor(riskAmount / (stopLossPips * pipValue))
	if units < absoluteMinUnits {
		units = absoluteMinUnits
	}

	s.log.Debug("fixed percentage sizing",
		zap.Float64("balance", balance),
		zap.Float64("risk_amount", riskAmount),
		zap.Float64("stop_loss_pips", stopLossPips),
		zap.Float64("units", units))

	return units
}

// Kelly computes the fractional Kelly risk percentage:
// kelly = W - (1-W)/R with R = |avgWin/avgLoss|, scaled by KellyFraction and
// clamped to [0, 2*RiskPerTrade]. Degenerate inputs (zero loss or zero win
// rate) return 0.
func (s *Sizer) Kelly(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss == 0 || winRate == 0 {
		return 0
	}

	rewardRisk := math.Abs(avgWin / avgLoss)
	kelly := winRate - (1-winRate)/rewardRisk
	fractional := kelly * s.cfg.KellyFraction

	clamped := math.Max(0, math.Min(fractional, s.cfg.RiskPerTrade*2))

	s.log.Debug("kelly criterion",
		zap.Float64("win_rate", winRate),
		zap.Float64("reward_risk", rewardRisk),
		zap.Float64("kelly", kelly),
		zap.Float64("clamped", clamped))

	return clamped
}

// SizeRequest carries the inputs for the PositionSize dispatch. Margin
// fields are optional; when both AvailableMargin and CurrentPrice are
// positive the margin-aware path is preferred.
type SizeRequest struct {
	Balance      float64
	StopLossPips float64
	PipValue     float64
	Confidence   float64 // 0-1; 0 is treated as full confidence

	// Margin-aware path inputs (optional).
	AvailableMargin float64
	CurrentPrice    float64
	Margin          AutoScaleRequest // remaining auto-scale constraints

	Metrics *PerformanceMetrics // optional, enables Kelly
}

// PositionSize picks a sizing strategy, scales by confidence, and enforces
// the minimum trade value expressed in units. It returns the unit count and
// the resulting risk fraction of balance.
func (s *Sizer) PositionSize(req SizeRequest) (float64, float64) {
	confidence := req.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 1.0
	}

	// Margin-aware auto-scaling is always preferred when margin state is
	// known: it is the only path that cannot trip broker insufficient-margin
	// rejections.
	if req.AvailableMargin > 0 && req.CurrentPrice > 0 {
		asReq := req.Margin
		asReq.Balance = req.Balance
		asReq.AvailableMargin = req.AvailableMargin
		asReq.CurrentPrice = req.CurrentPrice
		asReq.StopLossPips = req.StopLossPips
		asReq.PipValue = req.PipValue
		asReq.Confidence = confidence
		res := s.AutoScaledUnits(asReq)
		return res.Units, res.RiskPct
	}

	if s.cfg.Method == KellyCriterion && req.Metrics != nil && req.Metrics.TotalTrades >= kellyMinTrades {
		kellyPct := s.Kelly(req.Metrics.WinRate, req.Metrics.AverageProfit, math.Abs(req.Metrics.AverageLoss))
		adjusted := kellyPct * confidence

		var units float64 = zeroStopFallbackUnits
		if req.StopLossPips > 0 && req.PipValue > 0 {
			units = math.Floor(req.Balance * adjusted / (req.StopLossPips * req.PipValue))
		}
		units = s.enforceMinimum(units, req.StopLossPips, req.PipValue)

		s.log.Info("kelly position sizing",
			zap.Float64("units", units),
			zap.Float64("risk_pct", adjusted))
		return units, adjusted
	}

	units := s.FixedPercentage(req.Balance, req.StopLossPips, req.PipValue)
	units = math.Floor(units * confidence)
	units = s.enforceMinimum(units, req.StopLossPips, req.PipValue)
	riskPct := s.cfg.RiskPerTrade * confidence

	s.log.Info("fixed percentage position sizing",
		zap.Float64("units", units),
		zap.Float64("risk_pct", riskPct))
	return units, riskPct
}

// enforceMinimum raises units so the worst-case loss at stop meets the
// configured minimum trade value, then applies the absolute unit floor.
func (s *Sizer) enforceMinimum(units, stopLossPips, pipValue float64) float64 {
	if s.cfg.MinTradeValue > 0 && stopLossPips > 0 && pipValue > 0 {
		minUnits := math.Ceil(s.cfg.MinTradeValue / (stopLossPips * pipValue))
		if units < minUnits {
			units = minUnits
		}
	}
	if units < absoluteMinUnits {
		units = absoluteMinUnits
	}
	return units
}

// RecommendedMethod suggests a sizing method for the given history length.
// Kelly needs a reasonable sample before its estimate means anything.
func RecommendedMethod(totalTrades int) Method {
	if totalTrades < kellyMinTrades {
		return FixedPercentage
	}
	return KellyCriterion
}
