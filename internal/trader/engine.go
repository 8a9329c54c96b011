package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"stockbot/internal/broker"
	"stockbot/internal/config"
	"stockbot/internal/features"
	"stockbot/internal/ledger"
	"stockbot/internal/marketdata"
	"stockbot/internal/models"
	"stockbot/internal/repository"
	"stockbot/internal/signal"
)

// TradeLedger records executed trades. Satisfied by *ledger.Ledger.
type TradeLedger interface {
	Append(ctx context.Context, rec *models.TradeRecord) error
}

var _ TradeLedger = (*ledger.Ledger)(nil)

// Engine runs the trading loop: evaluate every watched symbol each cycle,
// open positions the models argue for, and close the ones that hit an exit
// rule. At most one position per symbol is ever held.
type Engine struct {
	Broker    broker.Broker
	Market    marketdata.Provider
	Evaluator *signal.Evaluator
	Ledger    TradeLedger
	Repo      repository.Repository
	Logger    *zap.Logger
	Strategy  config.StrategyConfig
	Trading   config.TradingConfig
	BarLimit  int

	// Now is overridable for tests; defaults to time.Now in UTC.
	Now func() time.Time

	// cycleMu serializes trading cycles; mu guards the state maps and is
	// held only briefly, so Snapshot never waits on broker or market calls.
	cycleMu   sync.Mutex
	mu        sync.Mutex
	positions map[string]*Position
	cooldowns map[string]time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Engine) init() {
	if e.positions == nil {
		e.positions = map[string]*Position{}
	}
	if e.cooldowns == nil {
		e.cooldowns = map[string]time.Time{}
	}
}

// Run polls RunOnce at the configured interval until the context ends.
func (e *Engine) Run(ctx context.Context) error {
	if e == nil || e.Broker == nil {
		return nil
	}
	interval := e.Trading.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := e.RunOnce(ctx); err != nil && e.Logger != nil {
			e.Logger.Warn("trading cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunOnce executes a single trading cycle. Broker reads that fail abort the
// whole cycle with state untouched; per-symbol failures skip that symbol.
func (e *Engine) RunOnce(ctx context.Context) error {
	if e == nil || e.Broker == nil || e.Market == nil || e.Evaluator == nil {
		return nil
	}
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	e.mu.Lock()
	e.init()
	e.mu.Unlock()
	now := e.now()

	open, err := e.Broker.IsMarketOpen(ctx)
	if err != nil {
		return fmt.Errorf("market clock: %w", err)
	}
	if !open {
		if e.Logger != nil {
			e.Logger.Debug("market closed, skipping cycle")
		}
		return nil
	}

	held, err := e.Broker.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("list broker positions: %w", err)
	}
	unmanaged := e.reconcile(ctx, held, now)

	cash, err := e.Broker.CashBalance(ctx)
	if err != nil {
		return fmt.Errorf("cash balance: %w", err)
	}

	for _, symbol := range e.Trading.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := unmanaged[symbol]; ok {
			continue
		}
		if err := e.step(ctx, symbol, cash, now); err != nil && e.Logger != nil {
			e.Logger.Warn("symbol cycle failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return nil
}

// reconcile aligns local state with the broker before trading. A position
// the broker no longer holds was closed externally: drop it, ledger it, and
// start the cooldown. A broker position we never opened is unmanaged; its
// symbol is skipped for the cycle so the bot never trades on top of it.
func (e *Engine) reconcile(ctx context.Context, held map[string]struct{}, now time.Time) map[string]struct{} {
	unmanaged := map[string]struct{}{}
	var dropped []*Position

	e.mu.Lock()
	for symbol := range held {
		if _, ok := e.positions[symbol]; !ok {
			unmanaged[symbol] = struct{}{}
		}
	}
	for symbol, pos := range e.positions {
		if _, ok := held[symbol]; ok {
			continue
		}
		delete(e.positions, symbol)
		e.cooldowns[symbol] = now.Add(e.Strategy.Cooldown)
		dropped = append(dropped, pos)
	}
	e.mu.Unlock()

	if e.Logger != nil {
		for symbol := range unmanaged {
			e.Logger.Warn("unmanaged broker position, skipping symbol", zap.String("symbol", symbol))
		}
	}
	for _, pos := range dropped {
		e.recordClose(ctx, pos, pos.EntryPrice, models.ReasonExternalClose, now, signal.Decision{})
		if e.Logger != nil {
			e.Logger.Warn("position closed externally",
				zap.String("symbol", pos.Symbol),
				zap.String("direction", pos.Direction),
			)
		}
	}
	return unmanaged
}

func (e *Engine) step(ctx context.Context, symbol string, cash decimal.Decimal, now time.Time) error {
	bars, err := e.Market.RecentBars(ctx, symbol, e.BarLimit)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			if e.Logger != nil {
				e.Logger.Debug("no bars", zap.String("symbol", symbol))
			}
			return nil
		}
		return err
	}
	row, err := features.Latest(bars)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientHistory) {
			if e.Logger != nil {
				e.Logger.Debug("insufficient history", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
			}
			return nil
		}
		return err
	}
	decision, err := e.Evaluator.Evaluate(row)
	if err != nil {
		return err
	}

	price, err := e.Market.LatestPrice(ctx, symbol)
	if err != nil {
		if !errors.Is(err, marketdata.ErrNoData) {
			return err
		}
		price = decimal.NewFromFloat(bars[len(bars)-1].Close)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	e.mu.Lock()
	pos, ok := e.positions[symbol]
	e.mu.Unlock()
	if ok {
		return e.manageExit(ctx, pos, price, decision, now)
	}
	return e.maybeEnter(ctx, symbol, decision, price, cash, now)
}

// manageExit applies the exit rules in fixed precedence: stop-loss, then
// take-profit, then signal reversal when enabled.
func (e *Engine) manageExit(ctx context.Context, pos *Position, price decimal.Decimal, decision signal.Decision, now time.Time) error {
	reason := ""
	switch {
	case pos.StopHit(price, e.Strategy.StopLossPct):
		if pos.Direction == models.DirectionShort {
			reason = models.ReasonShortStopLoss
		} else {
			reason = models.ReasonLongStopLoss
		}
	case pos.TargetHit(price, e.Strategy.TakeProfitPct):
		if pos.Direction == models.DirectionShort {
			reason = models.ReasonShortTakeProfit
		} else {
			reason = models.ReasonLongTakeProfit
		}
	case e.Strategy.ReversalExit && pos.Direction == models.DirectionLong && e.Evaluator.LongReversal(decision):
		reason = models.ReasonSignalReverse
	case e.Strategy.ReversalExit && pos.Direction == models.DirectionShort && e.Evaluator.ShortReversal(decision):
		reason = models.ReasonSignalReverse
	}
	if reason == "" {
		return nil
	}

	if err := e.Broker.ClosePosition(ctx, pos.Symbol); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.positions, pos.Symbol)
	e.cooldowns[pos.Symbol] = now.Add(e.Strategy.Cooldown)
	e.mu.Unlock()
	e.recordClose(ctx, pos, price, reason, now, decision)
	if e.Logger != nil {
		e.Logger.Info("position closed",
			zap.String("symbol", pos.Symbol),
			zap.String("direction", pos.Direction),
			zap.String("reason", reason),
			zap.String("price", price.String()),
		)
	}
	return nil
}

// maybeEnter opens a position when the models say so and the gates allow it.
// Order submission comes first; nothing is recorded unless the broker accepts.
func (e *Engine) maybeEnter(ctx context.Context, symbol string, decision signal.Decision, price, cash decimal.Decimal, now time.Time) error {
	if decision.Action == signal.ActionHold {
		return nil
	}
	e.mu.Lock()
	if until, ok := e.cooldowns[symbol]; ok {
		if now.Before(until) {
			e.mu.Unlock()
			return nil
		}
		delete(e.cooldowns, symbol)
	}
	if e.Strategy.MaxConcurrentTrades > 0 && len(e.positions) >= e.Strategy.MaxConcurrentTrades {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	qty := cash.Mul(decimal.NewFromFloat(e.Strategy.PositionSizeFraction)).Div(price).IntPart()
	if qty <= 0 {
		return nil
	}

	direction := models.DirectionLong
	action := models.ActionBuy
	side := broker.SideBuy
	reason := models.ReasonLongEntry
	if decision.Action == signal.ActionShort {
		direction = models.DirectionShort
		action = models.ActionSell
		side = broker.SideSell
		reason = models.ReasonShortEntry
	}

	if err := e.Broker.SubmitOrder(ctx, symbol, qty, side); err != nil {
		return err
	}

	pos := &Position{
		Symbol:     symbol,
		Direction:  direction,
		Quantity:   qty,
		EntryPrice: price,
		OpenedAt:   now,
	}
	e.mu.Lock()
	e.positions[symbol] = pos
	e.mu.Unlock()
	e.appendLedger(ctx, &models.TradeRecord{
		Timestamp: now,
		Symbol:    symbol,
		Action:    action,
		Direction: direction,
		Reason:    reason,
		Price:     price,
		Quantity:  qty,
		Payload:   decisionPayload(decision),
	})
	e.mirrorOpen(ctx, pos, price)
	if e.Logger != nil {
		e.Logger.Info("position opened",
			zap.String("symbol", symbol),
			zap.String("direction", direction),
			zap.Int64("qty", qty),
			zap.String("price", price.String()),
			zap.Float64("probability", decision.Probability),
			zap.Float64("predicted_return", decision.Return),
		)
	}
	return nil
}

func (e *Engine) recordClose(ctx context.Context, pos *Position, price decimal.Decimal, reason string, now time.Time, decision signal.Decision) {
	e.appendLedger(ctx, &models.TradeRecord{
		Timestamp: now,
		Symbol:    pos.Symbol,
		Action:    models.ActionClose,
		Direction: pos.Direction,
		Reason:    reason,
		Price:     price,
		Quantity:  pos.Quantity,
		Payload:   decisionPayload(decision),
	})
	if e.Repo != nil {
		if err := e.Repo.CloseOpenPosition(ctx, pos.Symbol, now); err != nil && e.Logger != nil {
			e.Logger.Warn("position mirror close failed", zap.String("symbol", pos.Symbol), zap.Error(err))
		}
	}
}

func (e *Engine) appendLedger(ctx context.Context, rec *models.TradeRecord) {
	if e.Ledger == nil {
		return
	}
	if err := e.Ledger.Append(ctx, rec); err != nil && e.Logger != nil {
		e.Logger.Warn("ledger append failed", zap.String("symbol", rec.Symbol), zap.Error(err))
	}
}

func (e *Engine) mirrorOpen(ctx context.Context, pos *Position, price decimal.Decimal) {
	if e.Repo == nil {
		return
	}
	rec := &models.PositionRecord{
		Symbol:           pos.Symbol,
		Direction:        pos.Direction,
		Quantity:         pos.Quantity,
		EntryPrice:       pos.EntryPrice,
		CurrentPrice:     price,
		CapitalAllocated: pos.CapitalAllocated(),
		UnrealizedPnL:    decimal.Zero,
		Status:           "open",
		OpenedAt:         pos.OpenedAt,
	}
	if err := e.Repo.UpsertOpenPosition(ctx, rec); err != nil && e.Logger != nil {
		e.Logger.Warn("position mirror upsert failed", zap.String("symbol", pos.Symbol), zap.Error(err))
	}
}

func decisionPayload(d signal.Decision) datatypes.JSON {
	raw, err := json.Marshal(map[string]float64{
		"probability":      d.Probability,
		"predicted_return": d.Return,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// Snapshot returns the open positions sorted by symbol, for the read API.
func (e *Engine) Snapshot() []Position {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.init()
	out := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
