package oanda

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/AegisAIOWNER/oanda-trader/broker"
	"github.com/AegisAIOWNER/oanda-trader/market"
	"github.com/AegisAIOWNER/oanda-trader/pkg/num"
)

type candleData struct {
	O num.Flex `json:"o"`
	H num.Flex `json:"h"`
	L num.Flex `json:"l"`
	C num.Flex `json:"c"`
}

type apiCandle struct {
	Complete bool       `json:"complete"`
	Volume   float64    `json:"volume"`
	Time     string     `json:"time"`
	Mid      candleData `json:"mid"`
}

type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

// Candles fetches midpoint candles for req.Instrument. Incomplete candles
// (the still-forming last one) are dropped so indicators only ever see
// closed candles.
func (c *Client) Candles(ctx context.Context, req broker.CandlesRequest) ([]market.Candle, error) {
	if req.Instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}

	count := req.Count
	if count <= 0 {
		count = 50
	}
	if count > 5000 {
		return nil, fmt.Errorf("count cannot exceed 5000")
	}
	granularity := req.Granularity
	if granularity == "" {
		granularity = string(H1)
	}

	params := url.Values{}
	params.Set("price", "M")
	params.Set("granularity", granularity)
	params.Set("count", fmt.Sprintf("%d", count))

	var resp candlesResponse
	path := fmt.Sprintf("/v3/instruments/%s/candles?%s", req.Instrument, params.Encode())
	if err := c.request(ctx, "GET", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("candles %s: %w", req.Instrument, err)
	}

	candles := make([]market.Candle, 0, len(resp.Candles))
	for _, ac := range resp.Candles {
		if !ac.Complete {
			continue
		}
		t, err := time.Parse(time.RFC3339, ac.Time)
		if err != nil {
			return nil, fmt.Errorf("parse candle time %s: %w", ac.Time, err)
		}
		candles = append(candles, market.Candle{
			Open:   ac.Mid.O.Float64(),
			High:   ac.Mid.H.Float64(),
			Low:    ac.Mid.L.Float64(),
			Close:  ac.Mid.C.Float64(),
			Time:   t,
			Volume: ac.Volume,
		})
	}

	return candles, nil
}
