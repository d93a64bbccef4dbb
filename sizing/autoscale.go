package sizing

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Skip reason prefixes. Full reasons append the offending values; callers
// and tests match on these substrings.
const (
	SkipInvalidPrice     = "invalid current price"
	SkipNoMargin         = "no available margin"
	SkipMarginBuffer     = "insufficient margin after buffer"
	SkipBelowMinimumSize = "below instrument minimum trade size"
	SkipBelowMinValue    = "below minimum trade value"
	SkipZeroUnits        = "computed units is zero"
)

// Stable skip codes, one per taxonomy entry. Unlike SkipReason these never
// embed live values, so they are safe as metric label values.
const (
	SkipCodeInvalidPrice  = "invalid_price"
	SkipCodeNoMargin      = "no_margin"
	SkipCodeMarginBuffer  = "margin_buffer"
	SkipCodeBelowMinSize  = "below_minimum_size"
	SkipCodeBelowMinValue = "below_minimum_value"
	SkipCodeZeroUnits     = "zero_units"
)

// AutoScaleRequest is the full input set for AutoScaledUnits. All fields are
// strongly typed; string-typed broker metadata is coerced where the broker
// response is decoded, not here.
type AutoScaleRequest struct {
	Balance         float64
	AvailableMargin float64
	CurrentPrice    float64
	StopLossPips    float64
	PipValue        float64 // account currency per unit per pip

	MarginRate   float64 // fraction, e.g. 0.0333 for ~30:1
	MarginBuffer float64 // 0-1, fraction of available margin kept untouched

	MinimumTradeSize    float64 // broker minimum, units
	TradeUnitsPrecision int     // decimal places; negative rounds to powers of ten
	MaximumOrderUnits   float64 // broker cap; <=0 means unconstrained

	MaxUnitsPerInstrument float64 // portfolio cap; <=0 means unconstrained
	RiskPerTrade          float64 // override; <=0 uses the sizer config
	MinTradeValue         float64 // override; <=0 uses the sizer config
	Confidence            float64 // 0-1; <=0 treated as full confidence
}

// Trace records every intermediate constraint value of an auto-scale run.
// It is a first-class output: the audit trail that explains why a size was
// chosen or a trade skipped.
type Trace struct {
	SkipReason string
	SkipCode   string

	EffectiveAvailableMargin float64
	MarginPerUnit            float64
	UnitsByMargin            float64
	RiskAmount               float64
	RiskPerUnit              float64
	UnitsByRisk              float64
	RawCandidate             float64
	RoundedCandidate         float64
	TradeValue               float64
	MinimumTradeSize         float64
	MinTradeValue            float64
	LimitedBy                string
}

// Result is the outcome of a sizing run. Units of zero with a non-empty
// Trace.SkipReason is a skip decision, not an error.
type Result struct {
	Units   float64
	RiskPct float64
	Trace   Trace
}

// Skipped reports whether the run declined to size a trade.
func (r Result) Skipped() bool {
	return r.Units == 0 && r.Trace.SkipReason != ""
}

func skip(t Trace, code, format string, args ...any) Result {
	t.SkipCode = code
	t.SkipReason = fmt.Sprintf(format, args...)
	return Result{Trace: t}
}

// AutoScaledUnits computes the largest position that simultaneously fits the
// available margin (after the buffer), the per-trade risk cap, the broker's
// order cap, and the portfolio cap, then rounds to instrument precision and
// rejects anything under the broker's minimum size or the configured minimum
// trade value. Margin and risk are independent, simultaneously binding
// constraints; taking their minimum is the only policy that breaches
// neither.
func (s *Sizer) AutoScaledUnits(req AutoScaleRequest) Result {
	var t Trace

	minTradeSize := req.MinimumTradeSize
	if minTradeSize <= 0 {
		minTradeSize = 1
	}
	t.MinimumTradeSize = minTradeSize

	minTradeValue := req.MinTradeValue
	if minTradeValue <= 0 {
		minTradeValue = s.cfg.MinTradeValue
	}
	t.MinTradeValue = minTradeValue

	riskPerTrade := req.RiskPerTrade
	if riskPerTrade <= 0 {
		riskPerTrade = s.cfg.RiskPerTrade
	}

	confidence := req.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 1.0
	}

	// Step 1: validation. These are data problems, so they skip instead of
	// erroring; the reason names the offending field.
	if req.CurrentPrice <= 0 {
		return skip(t, SkipCodeInvalidPrice, "%s: %v", SkipInvalidPrice, req.CurrentPrice)
	}
	if req.AvailableMargin <= 0 {
		return skip(t, SkipCodeNoMargin, "%s: %v", SkipNoMargin, req.AvailableMargin)
	}

	// Step 2: margin buffer.
	t.EffectiveAvailableMargin = req.AvailableMargin * (1 - req.MarginBuffer)
	if t.EffectiveAvailableMargin <= 0 {
		return skip(t, SkipCodeMarginBuffer, "%s: available %.2f, buffer %.2f", SkipMarginBuffer,
			req.AvailableMargin, req.MarginBuffer)
	}

	// Step 3: margin-constrained units. A missing or non-positive margin
	// rate falls back to a conservative ~30:1 estimate rather than dividing
	// by zero.
	marginRate := req.MarginRate
	if marginRate*req.CurrentPrice <= 0 {
		marginRate = fallbackMarginRate
	}
	t.MarginPerUnit = req.CurrentPrice * marginRate
	t.UnitsByMargin = math.Floor(t.EffectiveAvailableMargin / t.MarginPerUnit)

	// Step 4: risk-constrained units. A zero risk-per-unit means the risk
	// constraint does not apply, recorded as zero here and resolved in
	// step 5.
	t.RiskAmount = req.Balance * riskPerTrade * confidence
	t.RiskPerUnit = req.StopLossPips * req.PipValue
	if t.RiskPerUnit > 0 {
		t.UnitsByRisk = math.Floor(t.RiskAmount / t.RiskPerUnit)
	}

	// Step 5: intersect the constraints. When the risk figure is zero the
	// margin figure stands in: an unconstraining risk limit must never zero
	// out a trade margin would allow.
	riskCap := t.UnitsByRisk
	if riskCap == 0 {
		riskCap = t.UnitsByMargin
	}

	candidate := t.UnitsByMargin
	t.LimitedBy = "margin"
	if riskCap < candidate {
		candidate = riskCap
		t.LimitedBy = "risk"
	}
	if req.MaximumOrderUnits > 0 && req.MaximumOrderUnits < candidate {
		candidate = req.MaximumOrderUnits
		t.LimitedBy = "maximum order units"
	}
	if req.MaxUnitsPerInstrument > 0 && req.MaxUnitsPerInstrument < candidate {
		candidate = req.MaxUnitsPerInstrument
		t.LimitedBy = "max units per instrument"
	}
	t.RawCandidate = candidate

	// Step 6: round to instrument precision before the minimum checks so a
	// post-rounding shortfall is caught, not silently accepted.
	t.RoundedCandidate = roundToPrecision(candidate, req.TradeUnitsPrecision)

	// Step 7: broker minimum trade size.
	if t.RoundedCandidate <= 0 {
		return skip(t, SkipCodeZeroUnits, "%s: raw candidate %.4f", SkipZeroUnits, t.RawCandidate)
	}
	if t.RoundedCandidate < minTradeSize {
		return skip(t, SkipCodeBelowMinSize, "%s: %.2f < %.2f", SkipBelowMinimumSize,
			t.RoundedCandidate, minTradeSize)
	}

	// Step 8: minimum trade notional (worst-case loss at stop).
	t.TradeValue = t.RoundedCandidate * req.StopLossPips * req.PipValue
	if t.TradeValue < minTradeValue {
		return skip(t, SkipCodeBelowMinValue, "%s: %.2f < %.2f", SkipBelowMinValue,
			t.TradeValue, minTradeValue)
	}

	// Step 9: success.
	var riskPct float64
	if req.Balance > 0 {
		riskPct = t.TradeValue / req.Balance
	}

	s.log.Debug("auto-scaled units",
		zap.Float64("units_by_margin", t.UnitsByMargin),
		zap.Float64("units_by_risk", t.UnitsByRisk),
		zap.Float64("units", t.RoundedCandidate),
		zap.String("limited_by", t.LimitedBy),
		zap.Float64("risk_pct", riskPct))

	return Result{Units: t.RoundedCandidate, RiskPct: riskPct, Trace: t}
}

// roundToPrecision truncates units toward zero at the given number of
// decimal places. Precision 0 keeps whole units; a negative precision
// truncates to the matching power of ten.
func roundToPrecision(units float64, precision int) float64 {
	if units <= 0 {
		return 0
	}
	scale := math.Pow(10, float64(precision))
	return math.Floor(units*scale) / scale
}
