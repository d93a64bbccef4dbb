package oanda

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AegisAIOWNER/oanda-trader/broker"
)

func TestCreateMarketOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		raw, _ := io.ReadAll(r.Body)

		var body orderRequestBody
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "EUR_USD", body.Order.Instrument)
		assert.Equal(t, "-5000", body.Order.Units)
		assert.Equal(t, "MARKET", body.Order.Type)
		assert.Equal(t, "FOK", body.Order.TimeInForce)
		require.NotNil(t, body.Order.StopLossOnFill)
		assert.Equal(t, "0.00150", body.Order.StopLossOnFill.Distance)
		assert.Nil(t, body.Order.TakeProfitOnFill)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"orderCreateTransaction":{"id":"11","units":"-5000","instrument":"EUR_USD"},
			"orderFillTransaction":{"id":"12","units":"-5000","instrument":"EUR_USD",
				"price":"1.08500","reason":"MARKET_ORDER"}
		}`))
	}))
	defer server.Close()

	result, err := testClient(server.URL).CreateMarketOrder(context.Background(), broker.MarketOrderRequest{
		Instrument:       "EUR_USD",
		Units:            -5000,
		StopLossDistance: 0.0015,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, broker.FullFill, result.Status)
	assert.Equal(t, "12", result.OrderID)
	assert.InDelta(t, 5000, result.FilledUnits, 1e-9)
	assert.InDelta(t, 1.085, result.FillPrice, 1e-9)
}

func TestParseOrderResponse(t *testing.T) {
	t.Parallel()

	tx := func(id, units, price, reason string) *orderTransaction {
		var tr orderTransaction
		raw := `{"id":"` + id + `","units":"` + units + `","price":"` + price + `","reason":"` + reason + `"}`
		_ = json.Unmarshal([]byte(raw), &tr)
		return &tr
	}

	tests := []struct {
		name        string
		resp        orderResponse
		wantSuccess bool
		wantStatus  broker.FillStatus
		wantReason  string
	}{
		{
			"error envelope",
			orderResponse{ErrorMessage: "INSUFFICIENT_MARGIN"},
			false, broker.Cancelled, "INSUFFICIENT_MARGIN",
		},
		{
			"full fill",
			orderResponse{
				OrderCreateTransaction: tx("1", "1000", "", ""),
				OrderFillTransaction:   tx("2", "1000", "1.1000", "MARKET_ORDER"),
			},
			true, broker.FullFill, "MARKET_ORDER",
		},
		{
			"partial fill",
			orderResponse{
				OrderCreateTransaction: tx("1", "1000", "", ""),
				OrderFillTransaction:   tx("2", "400", "1.1000", "MARKET_ORDER"),
			},
			true, broker.PartialFill, "MARKET_ORDER",
		},
		{
			"no fill",
			orderResponse{
				OrderCreateTransaction: tx("1", "1000", "", ""),
				OrderFillTransaction:   tx("2", "0", "", ""),
			},
			true, broker.NoFill, "MARKET_ORDER",
		},
		{
			"cancelled",
			orderResponse{
				OrderCreateTransaction: tx("1", "1000", "", ""),
				OrderCancelTransaction: tx("3", "0", "", "MARKET_HALTED"),
			},
			false, broker.Cancelled, "MARKET_HALTED",
		},
		{
			"created only",
			orderResponse{OrderCreateTransaction: tx("1", "1000", "", "")},
			false, broker.Pending, "order created but status unknown",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseOrderResponse(tt.resp)
			assert.Equal(t, tt.wantSuccess, got.Success)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Contains(t, got.Reason, tt.wantReason)
		})
	}
}
