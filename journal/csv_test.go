package journal

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	t.Parallel()

	open := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{
			ID:         "01ARZ3NDEKTSV4RRFFQ69G5FAV",
			Time:       open,
			Instrument: "EUR_USD",
			Signal:     "BUY",
			Confidence: 0.8,
			EntryPrice: 1.1,
			Units:      10000,
			RiskPct:    0.02,
			ExitPrice:  1.105,
			ExitTime:   open.Add(time.Hour),
			ProfitLoss: 50,
			Status:     StatusClosed,
		},
		{
			ID:         "01ARZ3NDEKTSV4RRFFQ69G5FB0",
			Time:       open.Add(2 * time.Hour),
			Instrument: "GBP_USD",
			Signal:     "SELL",
			Confidence: 0.65,
			EntryPrice: 1.27,
			Units:      -5000,
			Status:     StatusOpen,
		},
	}

	var sb strings.Builder
	require.NoError(t, ExportCSV(&sb, trades))

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "EUR_USD", rows[1][2])
	assert.Equal(t, "2024-03-01T10:00:00Z", rows[1][12])
	assert.Equal(t, StatusClosed, rows[1][14])

	// Open trade leaves the exit time empty.
	assert.Equal(t, "", rows[2][12])
	assert.Equal(t, StatusOpen, rows[2][14])
}
