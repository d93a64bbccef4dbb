package oanda

import (
	"context"
	"fmt"

	"github.com/AegisAIOWNER/oanda-trader/broker"
	"github.com/AegisAIOWNER/oanda-trader/pkg/num"
)

type accountSummaryResponse struct {
	Account struct {
		ID              string   `json:"id"`
		Currency        string   `json:"currency"`
		Balance         num.Flex `json:"balance"`
		MarginAvailable num.Flex `json:"marginAvailable"`
		MarginUsed      num.Flex `json:"marginUsed"`
		UnrealizedPL    num.Flex `json:"unrealizedPL"`
		OpenTradeCount  int      `json:"openTradeCount"`
	} `json:"account"`
}

// Account fetches the account summary: balance, available and used margin.
func (c *Client) Account(ctx context.Context) (broker.Account, error) {
	var resp accountSummaryResponse
	path := fmt.Sprintf("/v3/accounts/%s/summary", c.accountID)
	if err := c.request(ctx, "GET", path, nil, &resp); err != nil {
		return broker.Account{}, fmt.Errorf("account summary: %w", err)
	}

	a := resp.Account
	return broker.Account{
		ID:              a.ID,
		Currency:        a.Currency,
		Balance:         a.Balance.Float64(),
		MarginAvailable: a.MarginAvailable.Float64(),
		MarginUsed:      a.MarginUsed.Float64(),
		UnrealizedPL:    a.UnrealizedPL.Float64(),
		OpenTradeCount:  a.OpenTradeCount,
	}, nil
}
