// Package broker defines the contract between the trading core and a broker
// backend. The core only ever talks to these types; the OANDA REST client in
// broker/oanda is the production implementation.
package broker

import (
	"context"

	"github.com/AegisAIOWNER/oanda-trader/market"
)

// Broker is the narrow interface the bot consumes. Implementations are
// expected to return errors on transport failure; data-quality handling
// belongs to the caller.
type Broker interface {
	Account(ctx context.Context) (Account, error)
	Candles(ctx context.Context, req CandlesRequest) ([]market.Candle, error)
	Instrument(ctx context.Context, name string) (market.InstrumentMeta, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	CreateMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderResult, error)
	ClosePosition(ctx context.Context, instrument string) error
}

// Account is the margin-relevant slice of the broker's account summary.
type Account struct {
	ID              string
	Currency        string
	Balance         float64
	MarginAvailable float64
	MarginUsed      float64
	UnrealizedPL    float64
	OpenTradeCount  int
}

// CandlesRequest selects a window of historical candles.
type CandlesRequest struct {
	Instrument  string
	Granularity string // broker granularity code, e.g. "M5", "H1"
	Count       int
}

// Position is the broker's view of one net open position.
type Position struct {
	Instrument   string
	Units        float64 // net; negative is short
	LongUnits    float64
	ShortUnits   float64 // magnitude
	UnrealizedPL float64
}

// MarketOrderRequest opens a position at market. Distances are price
// distances (pips * pip size), matching the broker's on-fill semantics.
type MarketOrderRequest struct {
	Instrument         string
	Units              float64 // signed; negative sells
	StopLossDistance   float64 // 0 means no stop
	TakeProfitDistance float64 // 0 means no target
}

// FillStatus classifies what happened to a submitted order.
type FillStatus string

const (
	FullFill    FillStatus = "FULL_FILL"
	PartialFill FillStatus = "PARTIAL_FILL"
	NoFill      FillStatus = "NO_FILL"
	Cancelled   FillStatus = "CANCELLED"
	Pending     FillStatus = "PENDING"
)

// OrderResult is the parsed outcome of an order submission.
type OrderResult struct {
	Success        bool
	OrderID        string
	Instrument     string
	Status         FillStatus
	RequestedUnits float64 // magnitude, direction stripped
	FilledUnits    float64 // magnitude, direction stripped
	FillPrice      float64
	Reason         string // broker-supplied reason or error message
}
