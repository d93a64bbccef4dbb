package indicators

import (
	"fmt"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// RSI is a streaming Relative Strength Index using Wilder's smoothing.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	gainSum   float64
	lossSum   float64
}

// NewRSI creates an RSI with the given period (14 is conventional).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

func (r *RSI) Warmup() int {
	return r.period + 1
}

func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}

func (r *RSI) Update(c market.Candle) {
	if r.count == 0 {
		r.prevClose = c.Close
		r.count++
		return
	}

	change := c.Close - r.prevClose
	r.prevClose = c.Close
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if r.count <= r.period {
		r.gainSum += gain
		r.lossSum += loss
		if r.count == r.period {
			r.avgGain = r.gainSum / float64(r.period)
			r.avgLoss = r.lossSum / float64(r.period)
		}
	} else {
		// Wilder's smoothing
		r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
		r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
	}
	r.count++
}

func (r *RSI) Ready() bool {
	return r.count > r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
