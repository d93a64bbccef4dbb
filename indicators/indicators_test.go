package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

func candlesFromCloses(closes ...float64) []market.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
			Time:  base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestSimpleMA(t *testing.T) {
	t.Parallel()

	ma := NewMA(3)
	assert.Equal(t, "MA(3)", ma.Name())
	assert.Equal(t, 3, ma.Warmup())
	assert.False(t, ma.Ready())
	assert.Zero(t, ma.Value())

	Warm(ma, candlesFromCloses(102, 105, 106))
	assert.True(t, ma.Ready())
	assert.InDelta(t, (102.0+105.0+106.0)/3, ma.Value(), 1e-9)

	// Window slides.
	Warm(ma, candlesFromCloses(108))
	assert.InDelta(t, (105.0+106.0+108.0)/3, ma.Value(), 1e-9)

	ma.Reset()
	assert.False(t, ma.Ready())
}

func TestExponentialMA(t *testing.T) {
	t.Parallel()

	ema := NewEMA(3)
	Warm(ema, candlesFromCloses(1, 2, 3))
	assert.True(t, ema.Ready())
	// Seeded with SMA of warmup window.
	assert.InDelta(t, 2.0, ema.Value(), 1e-9)

	Warm(ema, candlesFromCloses(4))
	// multiplier = 0.5: 2 + (4-2)*0.5 = 3.
	assert.InDelta(t, 3.0, ema.Value(), 1e-9)
}

func TestRSI(t *testing.T) {
	t.Parallel()

	t.Run("all gains saturate at 100", func(t *testing.T) {
		t.Parallel()
		rsi := NewRSI(14)
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		Warm(rsi, candlesFromCloses(closes...))
		assert.True(t, rsi.Ready())
		assert.InDelta(t, 100, rsi.Value(), 1e-9)
	})

	t.Run("alternating moves sit near 50", func(t *testing.T) {
		t.Parallel()
		rsi := NewRSI(14)
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100 + float64(i%2)
		}
		Warm(rsi, candlesFromCloses(closes...))
		assert.True(t, rsi.Ready())
		assert.InDelta(t, 50, rsi.Value(), 10)
	})

	t.Run("not ready during warmup", func(t *testing.T) {
		t.Parallel()
		rsi := NewRSI(14)
		Warm(rsi, candlesFromCloses(1, 2, 3))
		assert.False(t, rsi.Ready())
		assert.Zero(t, rsi.Value())
	})
}

func TestMACD(t *testing.T) {
	t.Parallel()

	macd := NewMACD(12, 26, 9)
	assert.Equal(t, "MACD(12,26,9)", macd.Name())

	// Flat prices: line, signal, and histogram all zero.
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 100
	}
	Warm(macd, candlesFromCloses(flat...))
	assert.True(t, macd.Ready())
	assert.InDelta(t, 0, macd.Line(), 1e-9)
	assert.InDelta(t, 0, macd.Histogram(), 1e-9)

	// A steady uptrend pulls the fast EMA above the slow one.
	macd.Reset()
	up := make([]float64, 60)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	Warm(macd, candlesFromCloses(up...))
	assert.True(t, macd.Ready())
	assert.Positive(t, macd.Line())
}

func TestBollinger(t *testing.T) {
	t.Parallel()

	bb := NewBollinger(20, 2)

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	Warm(bb, candlesFromCloses(flat...))
	assert.True(t, bb.Ready())
	assert.InDelta(t, 100, bb.Middle(), 1e-9)
	assert.InDelta(t, 100, bb.Upper(), 1e-9)
	assert.InDelta(t, 100, bb.Lower(), 1e-9)

	// Alternating series: mean 100.5, stddev 0.5, bands at mean±1.
	bb.Reset()
	alt := make([]float64, 20)
	for i := range alt {
		alt[i] = 100 + float64(i%2)
	}
	Warm(bb, candlesFromCloses(alt...))
	assert.InDelta(t, 100.5, bb.Middle(), 1e-9)
	assert.InDelta(t, 101.5, bb.Upper(), 1e-9)
	assert.InDelta(t, 99.5, bb.Lower(), 1e-9)
}

func TestATR(t *testing.T) {
	t.Parallel()

	atr := NewATR(14)

	// Constant 1.0 high-low range with no gaps: ATR converges to 1.
	candles := candlesFromCloses(make([]float64, 30)...)
	for i := range candles {
		candles[i].Open = 100
		candles[i].High = 100.5
		candles[i].Low = 99.5
		candles[i].Close = 100
	}
	Warm(atr, candles)
	assert.True(t, atr.Ready())
	assert.InDelta(t, 1.0, atr.Value(), 1e-9)
}

func TestATR_GapsUseTrueRange(t *testing.T) {
	t.Parallel()

	atr := NewATR(2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100, Time: base},
		// Gap up: true range is high - prevClose = 5.
		{Open: 104, High: 105, Low: 104, Close: 104.5, Time: base.Add(time.Hour)},
		{Open: 104.5, High: 105.5, Low: 104.5, Close: 105, Time: base.Add(2 * time.Hour)},
	}
	Warm(atr, candles)

	assert.True(t, atr.Ready())
	want := (math.Max(105-104, 105-100) + (105.5 - 104.5)) / 2
	assert.InDelta(t, want, atr.Value(), 1e-9)
}
