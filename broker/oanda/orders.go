package oanda

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/broker"
	"github.com/AegisAIOWNER/oanda-trader/pkg/num"
)

type onFillDistance struct {
	Distance string `json:"distance"`
}

type orderBody struct {
	Instrument       string          `json:"instrument"`
	Units            string          `json:"units"`
	Type             string          `json:"type"`
	TimeInForce      string          `json:"timeInForce"`
	StopLossOnFill   *onFillDistance `json:"stopLossOnFill,omitempty"`
	TakeProfitOnFill *onFillDistance `json:"takeProfitOnFill,omitempty"`
}

type orderRequestBody struct {
	Order orderBody `json:"order"`
}

type orderTransaction struct {
	ID         string   `json:"id"`
	OrderID    string   `json:"orderID"`
	Instrument string   `json:"instrument"`
	Units      num.Flex `json:"units"`
	Price      num.Flex `json:"price"`
	PL         num.Flex `json:"pl"`
	Reason     string   `json:"reason"`
	Time       string   `json:"time"`
}

type orderResponse struct {
	ErrorMessage           string            `json:"errorMessage"`
	OrderCreateTransaction *orderTransaction `json:"orderCreateTransaction"`
	OrderFillTransaction   *orderTransaction `json:"orderFillTransaction"`
	OrderCancelTransaction *orderTransaction `json:"orderCancelTransaction"`
}

// CreateMarketOrder submits a fill-or-kill market order with optional
// on-fill stop-loss and take-profit distances, then classifies the outcome
// (full fill, partial fill, cancel) from the transaction envelope.
func (c *Client) CreateMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderResult, error) {
	body := orderRequestBody{
		Order: orderBody{
			Instrument:  req.Instrument,
			Units:       strconv.FormatFloat(req.Units, 'f', -1, 64),
			Type:        "MARKET",
			TimeInForce: "FOK",
		},
	}
	if req.StopLossDistance > 0 {
		body.Order.StopLossOnFill = &onFillDistance{
			Distance: strconv.FormatFloat(req.StopLossDistance, 'f', 5, 64),
		}
	}
	if req.TakeProfitDistance > 0 {
		body.Order.TakeProfitOnFill = &onFillDistance{
			Distance: strconv.FormatFloat(req.TakeProfitDistance, 'f', 5, 64),
		}
	}

	var resp orderResponse
	path := fmt.Sprintf("/v3/accounts/%s/orders", c.accountID)
	if err := c.request(ctx, "POST", path, body, &resp); err != nil {
		return broker.OrderResult{}, fmt.Errorf("create order %s: %w", req.Instrument, err)
	}

	result := parseOrderResponse(resp)
	c.log.Info("order submitted",
		zap.String("instrument", req.Instrument),
		zap.Float64("units", req.Units),
		zap.String("status", string(result.Status)),
		zap.String("reason", result.Reason))
	return result, nil
}

// parseOrderResponse classifies the order outcome. Partial fills are
// possible even with FOK when the broker reduces the order, so requested vs
// filled units are compared explicitly.
func parseOrderResponse(resp orderResponse) broker.OrderResult {
	if resp.ErrorMessage != "" {
		return broker.OrderResult{
			Success: false,
			Status:  broker.Cancelled,
			Reason:  resp.ErrorMessage,
		}
	}

	var requested float64
	if resp.OrderCreateTransaction != nil {
		requested = math.Abs(resp.OrderCreateTransaction.Units.Float64())
	}

	if fill := resp.OrderFillTransaction; fill != nil {
		filled := math.Abs(fill.Units.Float64())
		status := broker.FullFill
		switch {
		case filled == 0:
			status = broker.NoFill
		case filled < requested:
			status = broker.PartialFill
		}
		reason := fill.Reason
		if reason == "" {
			reason = "MARKET_ORDER"
		}
		return broker.OrderResult{
			Success:        true,
			OrderID:        fill.ID,
			Instrument:     fill.Instrument,
			Status:         status,
			RequestedUnits: requested,
			FilledUnits:    filled,
			FillPrice:      fill.Price.Float64(),
			Reason:         reason,
		}
	}

	if cancel := resp.OrderCancelTransaction; cancel != nil {
		reason := cancel.Reason
		if reason == "" {
			reason = "order cancelled"
		}
		return broker.OrderResult{
			Success:        false,
			OrderID:        cancel.OrderID,
			Status:         broker.Cancelled,
			RequestedUnits: requested,
			Reason:         reason,
		}
	}

	// Created but neither filled nor cancelled; should not happen with FOK.
	var id string
	if resp.OrderCreateTransaction != nil {
		id = resp.OrderCreateTransaction.ID
	}
	return broker.OrderResult{
		Success:        false,
		OrderID:        id,
		Status:         broker.Pending,
		RequestedUnits: requested,
		Reason:         "order created but status unknown",
	}
}
