package bot

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/AegisAIOWNER/oanda-trader/broker"
	"github.com/AegisAIOWNER/oanda-trader/journal"
	"github.com/AegisAIOWNER/oanda-trader/market"
	"github.com/AegisAIOWNER/oanda-trader/metrics"
	"github.com/AegisAIOWNER/oanda-trader/pkg/id"
	"github.com/AegisAIOWNER/oanda-trader/risk"
	"github.com/AegisAIOWNER/oanda-trader/sizing"
	"github.com/AegisAIOWNER/oanda-trader/strategies"
)

// RunCycle executes one pass over all configured instruments.
func (b *Bot) RunCycle(ctx context.Context) error {
	acct, err := b.broker.Account(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}
	metrics.UpdateBalance(acct.Balance)

	if b.dailyStartBalance == 0 {
		b.dailyStartBalance = acct.Balance
	}
	if loss := b.dailyStartBalance - acct.Balance; loss > 0 &&
		loss/b.dailyStartBalance > b.cfg.Risk.MaxDailyLossPercent/100 {
		b.log.Error("daily loss limit reached",
			zap.Float64("start_balance", b.dailyStartBalance),
			zap.Float64("balance", acct.Balance))
		return ErrDailyLossLimit
	}

	// The broker is the source of truth for what is open.
	positions, err := b.broker.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch open positions: %w", err)
	}
	brokerPositions := make([]risk.BrokerPosition, 0, len(positions))
	openByInstrument := make(map[string]broker.Position, len(positions))
	for _, p := range positions {
		brokerPositions = append(brokerPositions, risk.BrokerPosition{
			Instrument:   p.Instrument,
			Units:        p.Units,
			UnrealizedPL: p.UnrealizedPL,
		})
		openByInstrument[p.Instrument] = p
	}
	b.ledger.SyncFromBroker(brokerPositions)
	metrics.UpdateLedger(b.ledger.OpenPositions(), b.ledger.TotalRisk())

	openTrades := make(map[string]journal.TradeRecord)
	if trades, err := b.journal.OpenTrades(); err != nil {
		b.log.Warn("reading open trades failed", zap.Error(err))
	} else {
		for _, t := range trades {
			openTrades[t.Instrument] = t
		}
	}

	riskOverride := b.kellyRiskOverride()

	for _, instrument := range b.cfg.Trading.Instruments {
		if err := b.processInstrument(ctx, acct, instrument, openByInstrument, openTrades, riskOverride); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error("instrument cycle failed",
				zap.String("instrument", instrument), zap.Error(err))
			metrics.RecordError("instrument")
		}
	}

	if err := b.journal.RecordEquity(journal.EquitySnapshot{
		Time:            time.Now().UTC(),
		Balance:         acct.Balance,
		NAV:             acct.Balance + acct.UnrealizedPL,
		MarginUsed:      acct.MarginUsed,
		MarginAvailable: acct.MarginAvailable,
		OpenPositions:   b.ledger.OpenPositions(),
		TotalRisk:       b.ledger.TotalRisk(),
	}); err != nil {
		b.log.Warn("recording equity failed", zap.Error(err))
	}

	metrics.RecordCycle()
	return nil
}

// kellyRiskOverride returns a per-trade risk fraction derived from recent
// performance, or 0 to keep the configured fixed fraction. Kelly needs a
// meaningful sample before it is trusted.
func (b *Bot) kellyRiskOverride() float64 {
	if sizing.Method(b.cfg.Sizing.Method) != sizing.KellyCriterion {
		return 0
	}
	perf, err := b.journal.Performance(performanceWindowDays)
	if err != nil {
		b.log.Warn("performance query failed, using fixed risk", zap.Error(err))
		return 0
	}
	if sizing.RecommendedMethod(perf.TotalTrades) != sizing.KellyCriterion {
		return 0
	}
	return b.sizer.Kelly(perf.WinRate, perf.AverageProfit, perf.AverageLoss)
}

func (b *Bot) processInstrument(
	ctx context.Context,
	acct broker.Account,
	instrument string,
	openByInstrument map[string]broker.Position,
	openTrades map[string]journal.TradeRecord,
	riskOverride float64,
) error {
	candles, err := b.broker.Candles(ctx, broker.CandlesRequest{
		Instrument:  instrument,
		Granularity: b.cfg.Trading.Granularity,
		Count:       b.cfg.Trading.CandleCount,
	})
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return nil
	}
	lastClose := candles[len(candles)-1].Close

	meta, err := b.broker.Instrument(ctx, instrument)
	if err != nil {
		b.log.Warn("instrument metadata fetch failed, using builtin",
			zap.String("instrument", instrument), zap.Error(err))
		meta = market.Lookup(instrument)
	}

	_, brokerOpen := openByInstrument[instrument]

	// A journal trade with no matching broker position was closed server
	// side (stop or target). Settle it with the last mid close as the best
	// available exit estimate.
	if rec, ok := openTrades[instrument]; ok && !brokerOpen {
		pl := (lastClose - rec.EntryPrice) * rec.Units
		if err := b.journal.RecordClose(rec.ID, lastClose, pl, time.Now().UTC()); err != nil {
			b.log.Warn("settling closed trade failed",
				zap.String("id", rec.ID), zap.Error(err))
		} else {
			b.log.Info("settled trade closed by broker",
				zap.String("instrument", instrument),
				zap.String("id", rec.ID),
				zap.Float64("profit_loss", pl))
		}
	}

	// One position per instrument; an open one keeps priority over any
	// new signal.
	if brokerOpen {
		return nil
	}

	sig := b.strategy.Analyze(candles, meta)
	if sig == nil {
		return nil
	}

	if b.cfg.Strategy.MultiTimeframe {
		higher, err := b.broker.Candles(ctx, broker.CandlesRequest{
			Instrument:  instrument,
			Granularity: b.cfg.Strategy.ConfirmationGranularity,
			Count:       b.cfg.Trading.CandleCount,
		})
		if err != nil {
			return fmt.Errorf("fetch confirmation candles: %w", err)
		}
		if sig = b.confirmer.Confirm(instrument, sig, higher, meta); sig == nil {
			return nil
		}
	}

	if sig.Confidence < b.cfg.Strategy.ConfidenceThreshold {
		b.log.Debug("signal below confidence threshold",
			zap.String("instrument", instrument),
			zap.Float64("confidence", sig.Confidence))
		return nil
	}
	metrics.RecordSignal(instrument, string(sig.Side), sig.Confidence)

	pip := meta.PipSize()
	pipValue := pip * market.QuoteToAccountRate(meta, acct.Currency, lastClose)

	result := b.sizer.AutoScaledUnits(sizing.AutoScaleRequest{
		Balance:               acct.Balance,
		AvailableMargin:       acct.MarginAvailable,
		CurrentPrice:          lastClose,
		StopLossPips:          sig.StopPips,
		PipValue:              pipValue,
		MarginRate:            meta.MarginRate,
		MarginBuffer:          b.cfg.Risk.MarginBuffer,
		MinimumTradeSize:      meta.MinimumTradeSize,
		TradeUnitsPrecision:   meta.TradeUnitsPrecision,
		MaximumOrderUnits:     meta.MaximumOrderUnits,
		MaxUnitsPerInstrument: b.cfg.Risk.MaxPositionUnits,
		RiskPerTrade:          riskOverride,
		Confidence:            sig.Confidence,
	})
	if result.Skipped() {
		b.log.Info("trade skipped by sizer",
			zap.String("instrument", instrument),
			zap.String("reason", result.Trace.SkipReason))
		metrics.RecordSizingSkip(instrument, result.Trace.SkipCode)
		return nil
	}

	riskAmount := result.RiskPct * acct.Balance
	if ok, reason := b.ledger.CanOpen(instrument, result.Units, riskAmount, acct.Balance); !ok {
		b.log.Info("trade rejected by risk ledger",
			zap.String("instrument", instrument),
			zap.String("reason", reason))
		metrics.RecordRiskRejection(instrument)
		return nil
	}

	units := result.Units
	if sig.Side == strategies.Sell {
		units = -units
	}

	res, err := b.broker.CreateMarketOrder(ctx, broker.MarketOrderRequest{
		Instrument:         instrument,
		Units:              units,
		StopLossDistance:   sig.StopPips * pip,
		TakeProfitDistance: sig.TargetPips * pip,
	})
	if err != nil {
		metrics.RecordError("order")
		return fmt.Errorf("create market order: %w", err)
	}
	metrics.RecordOrder(instrument, string(res.Status))

	if res.Status != broker.FullFill && res.Status != broker.PartialFill {
		b.log.Warn("order not filled",
			zap.String("instrument", instrument),
			zap.String("status", string(res.Status)),
			zap.String("reason", res.Reason))
		return nil
	}

	// FilledUnits is a magnitude; carry the order's direction through so
	// sells stay negative in the ledger and the journal.
	filled := units
	if res.FilledUnits != 0 {
		filled = math.Copysign(res.FilledUnits, units)
	}
	b.ledger.Register(instrument, filled, riskAmount)
	metrics.UpdateLedger(b.ledger.OpenPositions(), b.ledger.TotalRisk())

	stopLoss, takeProfit := protectionPrices(res.FillPrice, sig, pip)
	rec := journal.TradeRecord{
		ID:         id.New(),
		Time:       time.Now().UTC(),
		Instrument: instrument,
		Signal:     string(sig.Side),
		Confidence: sig.Confidence,
		EntryPrice: res.FillPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Units:      filled,
		ATR:        sig.ATR,
		RiskPct:    result.RiskPct,
	}
	if err := b.journal.RecordOpen(rec); err != nil {
		b.log.Warn("journaling trade failed", zap.String("id", rec.ID), zap.Error(err))
	}

	b.log.Info("position opened",
		zap.String("instrument", instrument),
		zap.String("side", string(sig.Side)),
		zap.Float64("units", filled),
		zap.Float64("entry", res.FillPrice),
		zap.Float64("confidence", sig.Confidence),
		zap.Float64("risk_pct", result.RiskPct))
	return nil
}

func protectionPrices(entry float64, sig *strategies.Signal, pip float64) (stop, target float64) {
	stopDist := sig.StopPips * pip
	targetDist := sig.TargetPips * pip
	if sig.Side == strategies.Buy {
		return entry - stopDist, entry + targetDist
	}
	return entry + stopDist, entry - targetDist
}
