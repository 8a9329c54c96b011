package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockbot/internal/config"
	"stockbot/internal/features"
	"stockbot/internal/marketdata"
	"stockbot/internal/models"
	"stockbot/internal/signal"
)

// Trade is one simulated fill.
type Trade struct {
	Time      time.Time
	Symbol    string
	Action    string
	Direction string
	Reason    string
	Price     decimal.Decimal
	Quantity  int64
}

// Result summarizes one symbol's simulation.
type Result struct {
	Symbol      string
	Trades      []Trade
	Wins        int
	Losses      int
	InitialCash decimal.Decimal
	FinalCash   decimal.Decimal
}

// ReturnPct is the total return of the run as a fraction of starting cash.
func (r Result) ReturnPct() decimal.Decimal {
	if r.InitialCash.IsZero() {
		return decimal.Zero
	}
	return r.FinalCash.Sub(r.InitialCash).Div(r.InitialCash)
}

// Runner replays a bar series through the evaluator with the same entry and
// exit rules the live engine uses. Two deliberate differences: the signal
// reversal exit is always active, and whatever is open at the end of the
// series is closed at the last price.
type Runner struct {
	Evaluator   *signal.Evaluator
	Strategy    config.StrategyConfig
	InitialCash decimal.Decimal
	Logger      *zap.Logger
}

type openTrade struct {
	direction string
	quantity  int64
	entry     decimal.Decimal
}

func (r *Runner) Run(symbol string, bars []marketdata.Bar) (Result, error) {
	res := Result{Symbol: symbol, InitialCash: r.InitialCash, FinalCash: r.InitialCash}
	if r.Evaluator == nil {
		return res, fmt.Errorf("runner needs an evaluator")
	}

	table, err := features.Build(bars)
	if err != nil {
		return res, err
	}

	cash := r.InitialCash
	var pos *openTrade
	for i, row := range table.Rows {
		bar := bars[table.Start+i]
		price := decimal.NewFromFloat(bar.Close)
		if price.LessThanOrEqual(decimal.Zero) {
			continue
		}

		decision, err := r.Evaluator.Evaluate(row)
		if err != nil {
			return res, err
		}

		if pos != nil {
			if reason := r.exitReason(pos, price, decision); reason != "" {
				cash = r.settle(&res, pos, symbol, price, reason, bar.Time, cash)
				pos = nil
			}
			continue
		}

		if decision.Action == signal.ActionHold {
			continue
		}
		qty := cash.Mul(decimal.NewFromFloat(r.Strategy.PositionSizeFraction)).Div(price).IntPart()
		if qty <= 0 {
			continue
		}
		direction := models.DirectionLong
		action := models.ActionBuy
		reason := models.ReasonLongEntry
		if decision.Action == signal.ActionShort {
			direction = models.DirectionShort
			action = models.ActionSell
			reason = models.ReasonShortEntry
		}
		cash = cash.Sub(price.Mul(decimal.NewFromInt(qty)))
		pos = &openTrade{direction: direction, quantity: qty, entry: price}
		res.Trades = append(res.Trades, Trade{
			Time: bar.Time, Symbol: symbol, Action: action,
			Direction: direction, Reason: reason, Price: price, Quantity: qty,
		})
	}

	if pos != nil {
		last := bars[len(bars)-1]
		price := decimal.NewFromFloat(last.Close)
		cash = r.settle(&res, pos, symbol, price, models.ReasonEndOfData, last.Time, cash)
	}

	res.FinalCash = cash
	if r.Logger != nil {
		r.Logger.Info("backtest finished",
			zap.String("symbol", symbol),
			zap.Int("trades", len(res.Trades)),
			zap.Int("wins", res.Wins),
			zap.Int("losses", res.Losses),
			zap.String("return_pct", res.ReturnPct().StringFixed(4)),
		)
	}
	return res, nil
}

func (r *Runner) exitReason(pos *openTrade, price decimal.Decimal, decision signal.Decision) string {
	sl := decimal.NewFromFloat(r.Strategy.StopLossPct)
	tp := decimal.NewFromFloat(r.Strategy.TakeProfitPct)
	one := decimal.NewFromInt(1)

	if pos.direction == models.DirectionShort {
		switch {
		case price.GreaterThanOrEqual(pos.entry.Mul(one.Add(sl))):
			return models.ReasonShortStopLoss
		case price.LessThanOrEqual(pos.entry.Mul(one.Sub(tp))):
			return models.ReasonShortTakeProfit
		case r.Evaluator.ShortReversal(decision):
			return models.ReasonSignalReverse
		}
		return ""
	}
	switch {
	case price.LessThanOrEqual(pos.entry.Mul(one.Sub(sl))):
		return models.ReasonLongStopLoss
	case price.GreaterThanOrEqual(pos.entry.Mul(one.Add(tp))):
		return models.ReasonLongTakeProfit
	case r.Evaluator.LongReversal(decision):
		return models.ReasonSignalReverse
	}
	return ""
}

// settle closes the open trade at price and returns the updated cash. Entry
// reserved qty*entry; settlement returns it plus the directional PnL.
func (r *Runner) settle(res *Result, pos *openTrade, symbol string, price decimal.Decimal, reason string, at time.Time, cash decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(pos.quantity)
	pnl := price.Sub(pos.entry).Mul(qty)
	if pos.direction == models.DirectionShort {
		pnl = pnl.Neg()
	}
	if pnl.GreaterThan(decimal.Zero) {
		res.Wins++
	} else {
		res.Losses++
	}
	res.Trades = append(res.Trades, Trade{
		Time: at, Symbol: symbol, Action: models.ActionClose,
		Direction: pos.direction, Reason: reason, Price: price, Quantity: pos.quantity,
	})
	return cash.Add(pos.entry.Mul(qty)).Add(pnl)
}
