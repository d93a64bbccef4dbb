package indicators

import (
	"fmt"
	"math"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// ATR is a streaming Average True Range using Wilder's smoothing. It drives
// the volatility-scaled stop and target distances.
type ATR struct {
	period    int
	count     int
	prevClose float64
	trSum     float64
	atr       float64
}

// NewATR creates an ATR with the given period (14 is conventional).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	return a.period + 1
}

func (a *ATR) Reset() {
	*a = ATR{period: a.period}
}

func (a *ATR) Update(c market.Candle) {
	if a.count == 0 {
		a.prevClose = c.Close
		a.count++
		return
	}

	tr := math.Max(c.High-c.Low,
		math.Max(math.Abs(c.High-a.prevClose), math.Abs(c.Low-a.prevClose)))
	a.prevClose = c.Close

	if a.count <= a.period {
		a.trSum += tr
		if a.count == a.period {
			a.atr = a.trSum / float64(a.period)
		}
	} else {
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}
	a.count++
}

func (a *ATR) Ready() bool {
	return a.count > a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}
