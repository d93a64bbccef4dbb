package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Time   time.Time
	Volume float64
}

// Range returns the high-low spread of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}
