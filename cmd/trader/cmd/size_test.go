package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunSizeNonUSDCurrency(t *testing.T) {
	sizeFlags.instrument = "EUR_USD"
	sizeFlags.currency = "EUR"
	sizeFlags.balance = 10000
	sizeFlags.margin = 5000
	sizeFlags.price = 1.0850
	sizeFlags.stopPips = 10
	sizeFlags.confidence = 0.8
	sizeFlags.risk = 0
	sizeFlags.buffer = 0

	require.NoError(t, runSize(sizeCmd, nil))
}
