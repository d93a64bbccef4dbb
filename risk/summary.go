package risk

// Summary is a read-only view of current exposure against the configured
// limits.
type Summary struct {
	OpenPositions       int
	MaxPositions        int
	PositionsAvailable  int
	TotalRiskAmount     float64
	TotalRiskPct        float64
	MaxRiskPct          float64
	RiskCapacityUsedPct float64
	Instruments         []string
	CorrelationGroups   map[string][]string
}

// Summary derives the current exposure view. It never mutates state; the
// returned maps and slices are copies.
func (l *Ledger) Summary(balance float64) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var riskPct float64
	if balance > 0 {
		riskPct = l.totalRisk / balance * 100
	}

	maxRiskPct := l.limits.MaxTotalRisk * 100
	var capacityUsed float64
	if maxRiskPct > 0 {
		capacityUsed = riskPct / maxRiskPct * 100
	}

	available := l.limits.MaxOpenPositions - len(l.positions)
	if available < 0 {
		available = 0
	}

	groups := make(map[string][]string, len(l.groups))
	for base, instruments := range l.groups {
		groups[base] = append([]string(nil), instruments...)
	}

	return Summary{
		OpenPositions:       len(l.positions),
		MaxPositions:        l.limits.MaxOpenPositions,
		PositionsAvailable:  available,
		TotalRiskAmount:     l.totalRisk,
		TotalRiskPct:        riskPct,
		MaxRiskPct:          maxRiskPct,
		RiskCapacityUsedPct: capacityUsed,
		Instruments:         l.instrumentsLocked(),
		CorrelationGroups:   groups,
	}
}
