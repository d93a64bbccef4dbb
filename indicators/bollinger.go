package indicators

import (
	"fmt"
	"math"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// Bollinger is a streaming Bollinger Bands indicator: an SMA middle band
// with upper/lower bands stdDevs standard deviations away.
type Bollinger struct {
	period  int
	stdDevs float64
	closes  []float64
}

// NewBollinger creates Bollinger Bands (20 periods, 2 standard deviations is
// conventional).
func NewBollinger(period int, stdDevs float64) *Bollinger {
	return &Bollinger{
		period:  period,
		stdDevs: stdDevs,
		closes:  make([]float64, 0, period),
	}
}

func (b *Bollinger) Name() string {
	return fmt.Sprintf("BB(%d,%.1f)", b.period, b.stdDevs)
}

func (b *Bollinger) Warmup() int {
	return b.period
}

func (b *Bollinger) Reset() {
	b.closes = b.closes[:0]
}

func (b *Bollinger) Update(c market.Candle) {
	b.closes = append(b.closes, c.Close)
	if len(b.closes) > b.period {
		b.closes = b.closes[1:]
	}
}

func (b *Bollinger) Ready() bool {
	return len(b.closes) >= b.period
}

// Middle returns the middle band (SMA).
func (b *Bollinger) Middle() float64 {
	if !b.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range b.closes {
		sum += v
	}
	return sum / float64(len(b.closes))
}

func (b *Bollinger) stdDev() float64 {
	mean := b.Middle()
	var sq float64
	for _, v := range b.closes {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(b.closes)))
}

// Upper returns the upper band.
func (b *Bollinger) Upper() float64 {
	if !b.Ready() {
		return 0
	}
	return b.Middle() + b.stdDevs*b.stdDev()
}

// Lower returns the lower band.
func (b *Bollinger) Lower() float64 {
	if !b.Ready() {
		return 0
	}
	return b.Middle() - b.stdDevs*b.stdDev()
}
