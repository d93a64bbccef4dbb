package risk

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() Limits {
	return Limits{
		MaxOpenPositions:       3,
		MaxRiskPerTrade:        0.02,
		MaxTotalRisk:           0.10,
		MaxCorrelatedPositions: 2,
		MaxUnitsPerInstrument:  100_000,
	}
}

func TestCanOpen_Gates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(*Ledger)
		call    func(*Ledger) (bool, string)
		wantSub string
	}{
		{
			"max positions",
			func(l *Ledger) {
				l.Register("EUR_USD", 1000, 10)
				l.Register("USD_JPY", 1000, 10)
				l.Register("GBP_USD", 1000, 10)
			},
			func(l *Ledger) (bool, string) { return l.CanOpen("AUD_USD", 1000, 10, 10000) },
			"Maximum open positions",
		},
		{
			"already open",
			func(l *Ledger) { l.Register("EUR_USD", 1000, 10) },
			func(l *Ledger) (bool, string) { return l.CanOpen("EUR_USD", 1000, 10, 10000) },
			"already open",
		},
		{
			"units cap",
			nil,
			func(l *Ledger) (bool, string) { return l.CanOpen("EUR_USD", 200_000, 10, 10000) },
			"exceeds maximum",
		},
		{
			"units cap applies to shorts",
			nil,
			func(l *Ledger) (bool, string) { return l.CanOpen("EUR_USD", -200_000, 10, 10000) },
			"exceeds maximum",
		},
		{
			"risk per trade",
			nil,
			func(l *Ledger) (bool, string) { return l.CanOpen("EUR_USD", 1000, 500, 10000) },
			"Risk per trade",
		},
		{
			"total risk",
			func(l *Ledger) {
				l.Register("USD_JPY", 1000, 600)
				l.Register("GBP_USD", 1000, 300)
			},
			func(l *Ledger) (bool, string) { return l.CanOpen("EUR_USD", 1000, 150, 10000) },
			"Total risk",
		},
		{
			"correlation group",
			func(l *Ledger) {
				l.Register("EUR_USD", 1000, 10)
				l.Register("EUR_GBP", 1000, 10)
			},
			func(l *Ledger) (bool, string) { return l.CanOpen("EUR_JPY", 1000, 10, 10000) },
			"Too many positions with EUR",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := NewLedger(testLimits(), nil)
			if tt.setup != nil {
				tt.setup(l)
			}
			ok, reason := tt.call(l)
			assert.False(t, ok)
			assert.Contains(t, reason, tt.wantSub)
		})
	}
}

func TestCanOpen_Allows(t *testing.T) {
	t.Parallel()
	l := NewLedger(testLimits(), nil)

	ok, reason := l.CanOpen("EUR_USD", 50_000, 150, 10000)
	assert.True(t, ok)
	assert.Contains(t, reason, "OK")
}

// The max-positions gate fires before everything else, regardless of the
// other arguments.
func TestCanOpen_MaxPositionsShortCircuits(t *testing.T) {
	t.Parallel()
	l := NewLedger(testLimits(), nil)
	l.Register("EUR_USD", 1000, 10)
	l.Register("USD_JPY", 1000, 10)
	l.Register("GBP_USD", 1000, 10)

	// Even a repeat instrument with absurd arguments gets the positions reason.
	ok, reason := l.CanOpen("EUR_USD", 1e12, 1e12, -1)
	assert.False(t, ok)
	assert.Contains(t, reason, "Maximum open positions")
}

func TestRegisterAndClose(t *testing.T) {
	t.Parallel()
	l := NewLedger(testLimits(), nil)

	l.Register("EUR_USD", 10_000, 200)
	l.Register("USD_JPY", -5_000, 150)

	assert.Equal(t, 2, l.OpenPositions())
	assert.InDelta(t, 350, l.TotalRisk(), 1e-9)

	pos, ok := l.PositionInfo("USD_JPY")
	require.True(t, ok)
	assert.InDelta(t, -5000, pos.Units, 1e-9)
	assert.InDelta(t, 150, pos.RiskAmount, 1e-9)

	l.ClosePosition("EUR_USD")
	assert.Equal(t, 1, l.OpenPositions())
	assert.InDelta(t, 150, l.TotalRisk(), 1e-9)

	// Closing an unknown instrument is a silent no-op.
	l.ClosePosition("GBP_USD")
	assert.Equal(t, 1, l.OpenPositions())
	assert.InDelta(t, 150, l.TotalRisk(), 1e-9)
}

// Aggregate risk always equals the sum of risk amounts over open positions,
// no matter the order of registers and closes.
func TestRiskConservation(t *testing.T) {
	t.Parallel()
	l := NewLedger(Limits{MaxOpenPositions: 100, MaxUnitsPerInstrument: 1e9, MaxCorrelatedPositions: 100}, nil)

	rng := rand.New(rand.NewSource(42))
	open := map[string]float64{}

	for i := 0; i < 500; i++ {
		instrument := fmt.Sprintf("C%02d_USD", rng.Intn(20))
		if _, exists := open[instrument]; exists || rng.Float64() < 0.4 {
			l.ClosePosition(instrument)
			delete(open, instrument)
			continue
		}
		risk := rng.Float64() * 100
		l.Register(instrument, 1000, risk)
		open[instrument] = risk

		var want float64
		for _, r := range open {
			want += r
		}
		assert.InDelta(t, want, l.TotalRisk(), 1e-6)
		assert.Equal(t, len(open), l.OpenPositions())
	}
}

func TestSyncFromBroker_ReplacesEverything(t *testing.T) {
	t.Parallel()
	l := NewLedger(testLimits(), nil)
	l.Register("EUR_USD", 10_000, 200)
	l.Register("USD_JPY", 5_000, 100)

	l.SyncFromBroker([]BrokerPosition{
		{Instrument: "GBP_USD", Units: 7_000, UnrealizedPL: 12.5},
		{Instrument: "AUD_USD", Units: -3_000},
		{Instrument: "", Units: 100},     // no instrument: dropped
		{Instrument: "NZD_USD", Units: 0}, // flat: dropped
	})

	assert.Equal(t, 2, l.OpenPositions())
	_, ok := l.PositionInfo("EUR_USD")
	assert.False(t, ok, "pre-sync positions must be gone")

	pos, ok := l.PositionInfo("GBP_USD")
	require.True(t, ok)
	assert.InDelta(t, 12.5, pos.UnrealizedPL, 1e-9)

	// The broker snapshot carries no risk amounts; the aggregate restarts
	// at zero until positions are registered again.
	assert.Zero(t, l.TotalRisk())

	s := l.Summary(10000)
	assert.ElementsMatch(t, []string{"AUD_USD", "GBP_USD"}, s.Instruments)
	assert.ElementsMatch(t, []string{"GBP_USD"}, s.CorrelationGroups["GBP"])
}

func TestSummary(t *testing.T) {
	t.Parallel()
	l := NewLedger(testLimits(), nil)
	l.Register("EUR_USD", 10_000, 200)
	l.Register("EUR_GBP", 5_000, 100)

	s := l.Summary(10000)

	assert.Equal(t, 2, s.OpenPositions)
	assert.Equal(t, 3, s.MaxPositions)
	assert.Equal(t, 1, s.PositionsAvailable)
	assert.InDelta(t, 300, s.TotalRiskAmount, 1e-9)
	assert.InDelta(t, 3.0, s.TotalRiskPct, 1e-9)
	assert.InDelta(t, 10.0, s.MaxRiskPct, 1e-9)
	assert.InDelta(t, 30.0, s.RiskCapacityUsedPct, 1e-9)
	assert.Equal(t, []string{"EUR_GBP", "EUR_USD"}, s.Instruments)
	assert.Len(t, s.CorrelationGroups["EUR"], 2)

	// Summary never mutates: the union of group members equals the open set.
	var grouped []string
	for _, g := range s.CorrelationGroups {
		grouped = append(grouped, g...)
	}
	assert.ElementsMatch(t, s.Instruments, grouped)

	// Zero balance reports zero percentages instead of dividing by zero.
	z := l.Summary(0)
	assert.Zero(t, z.TotalRiskPct)
}

func TestReset(t *testing.T) {
	t.Parallel()
	l := NewLedger(testLimits(), nil)
	l.Register("EUR_USD", 10_000, 200)

	l.Reset()

	assert.Zero(t, l.OpenPositions())
	assert.Zero(t, l.TotalRisk())
	ok, _ := l.CanOpen("EUR_USD", 1000, 10, 10000)
	assert.True(t, ok)
}
