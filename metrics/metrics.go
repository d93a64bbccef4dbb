// Package metrics exposes the trader's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_cycles_total",
			Help: "Total number of completed trading cycles",
		},
	)

	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Total number of signals generated",
		},
		[]string{"instrument", "side"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Total number of market orders placed",
		},
		[]string{"instrument", "status"},
	)

	sizingSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_sizing_skips_total",
			Help: "Trades skipped by the position sizer",
		},
		[]string{"instrument", "reason"},
	)

	riskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_risk_rejections_total",
			Help: "Trades rejected by the risk ledger",
		},
		[]string{"instrument"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Positions currently tracked by the risk ledger",
		},
	)

	totalRisk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_total_risk",
			Help: "Aggregate risk amount in account currency",
		},
	)

	accountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_account_balance",
			Help: "Last observed account balance",
		},
	)

	signalConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trader_signal_confidence",
			Help: "Confidence of the latest signal per instrument",
		},
		[]string{"instrument"},
	)
)

func init() {
	prometheus.MustRegister(
		cyclesTotal,
		signalsTotal,
		ordersTotal,
		sizingSkipsTotal,
		riskRejectionsTotal,
		errorsTotal,
		openPositions,
		totalRisk,
		accountBalance,
		signalConfidence,
	)
}

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle counts one completed trading cycle.
func RecordCycle() {
	cyclesTotal.Inc()
}

// RecordSignal counts a generated signal and tracks its confidence.
func RecordSignal(instrument, side string, confidence float64) {
	signalsTotal.WithLabelValues(instrument, side).Inc()
	signalConfidence.WithLabelValues(instrument).Set(confidence)
}

// RecordOrder counts a placed order by fill status.
func RecordOrder(instrument, status string) {
	ordersTotal.WithLabelValues(instrument, status).Inc()
}

// RecordSizingSkip counts a trade the sizer refused, by stable skip code.
// Codes come from the sizing taxonomy constants; the formatted skip reasons
// embed live values and would blow up label cardinality.
func RecordSizingSkip(instrument, code string) {
	sizingSkipsTotal.WithLabelValues(instrument, code).Inc()
}

// RecordRiskRejection counts a trade the risk ledger refused.
func RecordRiskRejection(instrument string) {
	riskRejectionsTotal.WithLabelValues(instrument).Inc()
}

// RecordError counts an error by type.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateLedger publishes the risk ledger's current state.
func UpdateLedger(positions int, risk float64) {
	openPositions.Set(float64(positions))
	totalRisk.Set(risk)
}

// UpdateBalance publishes the last observed account balance.
func UpdateBalance(balance float64) {
	accountBalance.Set(balance)
}
