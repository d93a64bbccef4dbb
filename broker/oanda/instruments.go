package oanda

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AegisAIOWNER/oanda-trader/market"
	"github.com/AegisAIOWNER/oanda-trader/pkg/num"
)

// apiInstrument mirrors OANDA's instrument metadata. Every numeric field is
// a JSON string in the wire format; num.Flex coerces them here so sizing
// never sees a string-typed number.
type apiInstrument struct {
	Name                string   `json:"name"`
	PipLocation         int      `json:"pipLocation"`
	DisplayPrecision    int      `json:"displayPrecision"`
	TradeUnitsPrecision int      `json:"tradeUnitsPrecision"`
	MinimumTradeSize    num.Flex `json:"minimumTradeSize"`
	MaximumOrderUnits   num.Flex `json:"maximumOrderUnits"`
	MarginRate          num.Flex `json:"marginRate"`
}

type instrumentsResponse struct {
	Instruments []apiInstrument `json:"instruments"`
}

// Instrument fetches broker metadata for one instrument. Fields the broker
// omits or mangles fall back to safe defaults: minimum trade size 1,
// precision 0, margin rate 0 (which sizing replaces with its conservative
// estimate).
func (c *Client) Instrument(ctx context.Context, name string) (market.InstrumentMeta, error) {
	params := url.Values{}
	params.Set("instruments", name)

	var resp instrumentsResponse
	path := fmt.Sprintf("/v3/accounts/%s/instruments?%s", c.accountID, params.Encode())
	if err := c.request(ctx, "GET", path, nil, &resp); err != nil {
		return market.InstrumentMeta{}, fmt.Errorf("instrument %s: %w", name, err)
	}
	if len(resp.Instruments) == 0 {
		return market.InstrumentMeta{}, fmt.Errorf("instrument %s: not found", name)
	}

	return metaFromAPI(resp.Instruments[0]), nil
}

func metaFromAPI(in apiInstrument) market.InstrumentMeta {
	meta := market.Lookup(in.Name) // base/quote currency split and pip fallback
	meta.Name = in.Name
	if in.PipLocation != 0 {
		meta.PipLocation = in.PipLocation
	}
	if in.DisplayPrecision != 0 {
		meta.DisplayPrecision = in.DisplayPrecision
	}
	meta.TradeUnitsPrecision = in.TradeUnitsPrecision

	meta.MinimumTradeSize = in.MinimumTradeSize.Float64()
	if meta.MinimumTradeSize <= 0 {
		meta.MinimumTradeSize = 1
	}
	meta.MaximumOrderUnits = in.MaximumOrderUnits.Float64()
	if meta.MaximumOrderUnits <= 0 {
		meta.MaximumOrderUnits = 100_000_000
	}
	meta.MarginRate = in.MarginRate.Float64()
	return meta
}
