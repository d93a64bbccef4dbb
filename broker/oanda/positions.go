package oanda

import (
	"context"
	"fmt"

	"github.com/AegisAIOWNER/oanda-trader/broker"
	"github.com/AegisAIOWNER/oanda-trader/pkg/num"
)

type positionSide struct {
	Units        num.Flex `json:"units"`
	UnrealizedPL num.Flex `json:"unrealizedPL"`
}

type apiPosition struct {
	Instrument   string       `json:"instrument"`
	UnrealizedPL num.Flex     `json:"unrealizedPL"`
	Long         positionSide `json:"long"`
	Short        positionSide `json:"short"`
}

type openPositionsResponse struct {
	Positions []apiPosition `json:"positions"`
}

// OpenPositions fetches the broker's open positions, netted per instrument.
// Flat positions are dropped.
func (c *Client) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	var resp openPositionsResponse
	path := fmt.Sprintf("/v3/accounts/%s/openPositions", c.accountID)
	if err := c.request(ctx, "GET", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}

	positions := make([]broker.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		if p.Instrument == "" {
			continue
		}
		long := p.Long.Units.Float64()
		short := p.Short.Units.Float64() // negative in the wire format
		net := long + short
		if net == 0 {
			continue
		}
		positions = append(positions, broker.Position{
			Instrument:   p.Instrument,
			Units:        net,
			LongUnits:    long,
			ShortUnits:   -short,
			UnrealizedPL: p.UnrealizedPL.Float64(),
		})
	}
	return positions, nil
}

type closePositionRequest struct {
	LongUnits  string `json:"longUnits,omitempty"`
	ShortUnits string `json:"shortUnits,omitempty"`
}

// ClosePosition closes the full net position in instrument, whichever side
// it is on.
func (c *Client) ClosePosition(ctx context.Context, instrument string) error {
	positions, err := c.OpenPositions(ctx)
	if err != nil {
		return err
	}

	var req closePositionRequest
	found := false
	for _, p := range positions {
		if p.Instrument != instrument {
			continue
		}
		found = true
		if p.LongUnits > 0 {
			req.LongUnits = "ALL"
		}
		if p.ShortUnits > 0 {
			req.ShortUnits = "ALL"
		}
	}
	if !found {
		return fmt.Errorf("close position %s: no open position", instrument)
	}

	path := fmt.Sprintf("/v3/accounts/%s/positions/%s/close", c.accountID, instrument)
	if err := c.request(ctx, "PUT", path, req, nil); err != nil {
		return fmt.Errorf("close position %s: %w", instrument, err)
	}
	return nil
}
