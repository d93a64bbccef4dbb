// Package bot runs the trading loop: poll candles, generate signals, size
// positions, gate them through the risk ledger, and place orders.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/broker"
	"github.com/AegisAIOWNER/oanda-trader/config"
	"github.com/AegisAIOWNER/oanda-trader/journal"
	"github.com/AegisAIOWNER/oanda-trader/metrics"
	"github.com/AegisAIOWNER/oanda-trader/risk"
	"github.com/AegisAIOWNER/oanda-trader/sizing"
	"github.com/AegisAIOWNER/oanda-trader/strategies"
)

// ErrDailyLossLimit stops the loop when the daily loss cap is hit.
var ErrDailyLossLimit = errors.New("daily loss limit reached")

// performanceWindowDays bounds the trade history fed into Kelly sizing.
const performanceWindowDays = 30

// Journal is the slice of the journal the bot consumes.
type Journal interface {
	RecordOpen(journal.TradeRecord) error
	RecordClose(id string, exitPrice, profitLoss float64, exitTime time.Time) error
	RecordEquity(journal.EquitySnapshot) error
	OpenTrades() ([]journal.TradeRecord, error)
	Performance(days int) (journal.Performance, error)
}

// Bot owns one trading session against one account.
type Bot struct {
	cfg       *config.Config
	broker    broker.Broker
	journal   Journal
	sizer     *sizing.Sizer
	ledger    *risk.Ledger
	strategy  strategies.Strategy
	confirmer *strategies.Confirmer
	log       *zap.Logger

	dailyStartBalance float64
}

// New wires a Bot from its configuration. A nil logger disables logging.
func New(cfg *config.Config, b broker.Broker, j Journal, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}

	strategy, err := buildStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	sizer := sizing.New(sizing.Config{
		Method:        sizing.Method(cfg.Sizing.Method),
		RiskPerTrade:  cfg.Sizing.RiskPerTrade,
		KellyFraction: cfg.Sizing.KellyFraction,
		MinTradeValue: cfg.Sizing.MinTradeValue,
	}, log)

	ledger := risk.NewLedger(risk.Limits{
		MaxOpenPositions:       cfg.Risk.MaxOpenPositions,
		MaxRiskPerTrade:        cfg.Risk.MaxRiskPerPosition,
		MaxTotalRisk:           cfg.Risk.MaxTotalRisk,
		MaxCorrelatedPositions: cfg.Risk.MaxCorrelated,
		MaxUnitsPerInstrument:  cfg.Risk.MaxPositionUnits,
	}, log)

	return &Bot{
		cfg:       cfg,
		broker:    b,
		journal:   j,
		sizer:     sizer,
		ledger:    ledger,
		strategy:  strategy,
		confirmer: strategies.NewConfirmer(strategy, log),
		log:       log,
	}, nil
}

func buildStrategy(cfg config.StrategyConfig) (strategies.Strategy, error) {
	switch {
	case cfg.Name == "scalp" || cfg.Name == "advanced_scalp":
		return strategies.NewScalp(cfg.Scalp), nil
	case cfg.Name == "ema-cross" || cfg.Name == "emacross":
		return strategies.NewEMACross(cfg.EMACross), nil
	default:
		return strategies.ByName(cfg.Name)
	}
}

// Ledger exposes the risk ledger for reporting.
func (b *Bot) Ledger() *risk.Ledger { return b.ledger }

// Run executes trading cycles until the context is cancelled or the daily
// loss limit stops the session.
func (b *Bot) Run(ctx context.Context) error {
	interval, err := b.cfg.Trading.Interval()
	if err != nil {
		return fmt.Errorf("check interval: %w", err)
	}

	acct, err := b.broker.Account(ctx)
	if err != nil {
		return fmt.Errorf("initial account fetch: %w", err)
	}
	b.dailyStartBalance = acct.Balance

	if b.cfg.Metrics.Enabled {
		go b.serveMetrics(ctx)
	}

	b.log.Info("bot started",
		zap.String("strategy", b.strategy.Name()),
		zap.Strings("instruments", b.cfg.Trading.Instruments),
		zap.String("granularity", b.cfg.Trading.Granularity),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.RunCycle(ctx); err != nil {
			if errors.Is(err, ErrDailyLossLimit) || errors.Is(err, context.Canceled) {
				return err
			}
			// Transient cycle errors do not stop the session.
			b.log.Error("cycle failed", zap.Error(err))
			metrics.RecordError("cycle")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Bot) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: b.cfg.Metrics.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	b.log.Info("metrics endpoint up", zap.String("listen", b.cfg.Metrics.Listen))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		b.log.Error("metrics server failed", zap.Error(err))
	}
}
