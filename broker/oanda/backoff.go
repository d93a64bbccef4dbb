package oanda

import (
	"math"
	"time"
)

// Backoff computes exponential retry delays for failed API calls.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

// DefaultBackoff matches the bot's historical retry schedule: 1s, 2s, 4s,
// 8s, 16s, capped at a minute.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:       time.Second,
		Max:        time.Minute,
		MaxRetries: 5,
	}
}

// Delay returns the wait before retry attempt (0-indexed), doubling each
// time and capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	d := time.Duration(float64(b.Base) * math.Pow(2, float64(attempt)))
	if d > b.Max || d <= 0 {
		d = b.Max
	}
	return d
}
