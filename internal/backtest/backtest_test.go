package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockbot/internal/config"
	"stockbot/internal/features"
	"stockbot/internal/marketdata"
	"stockbot/internal/models"
	"stockbot/internal/signal"
)

func testStrategy() config.StrategyConfig {
	return config.StrategyConfig{
		LongProbThreshold:    0.58,
		LongReturnThreshold:  0.002,
		ShortProbThreshold:   0.25,
		ShortReturnThreshold: -0.0065,
		StopLossPct:          0.06,
		TakeProfitPct:        0.10,
		PositionSizeFraction: 0.10,
	}
}

type pr struct{ p, r float64 }

// queueSignal replays one scripted model output per evaluated row.
// Evaluate calls PredictProba first and Predict second, so the cursor
// advances in Predict.
type queueSignal struct {
	outs []pr
	i    int
}

func (q *queueSignal) PredictProba(features.Row) (float64, error) { return q.outs[q.i].p, nil }

func (q *queueSignal) Predict(features.Row) (float64, error) {
	v := q.outs[q.i]
	q.i++
	return v.r, nil
}

// seriesWithTail builds enough flat history at 100 for one feature row per
// tail close.
func seriesWithTail(tail ...float64) []marketdata.Bar {
	base := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
	n := features.MinBars - 1 + len(tail)
	bars := make([]marketdata.Bar, n)
	for i := range bars {
		c := 100.0
		if j := i - (features.MinBars - 1); j >= 0 {
			c = tail[j]
		}
		bars[i] = marketdata.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func newRunnerShared(outs []pr) *Runner {
	strat := testStrategy()
	q := &queueSignal{outs: outs}
	return &Runner{
		Evaluator:   &signal.Evaluator{Classifier: q, Regressor: q, Strategy: strat},
		Strategy:    strat,
		InitialCash: decimal.NewFromInt(10000),
	}
}

func TestRunClosesOpenPositionAtEndOfData(t *testing.T) {
	bars := seriesWithTail(100, 100, 100)
	r := newRunnerShared([]pr{{0.60, 0.003}, {0.5, 0}, {0.5, 0}})

	res, err := r.Run("AAPL", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trades = %+v, want entry plus forced close", res.Trades)
	}
	last := res.Trades[1]
	if last.Reason != models.ReasonEndOfData || last.Action != models.ActionClose {
		t.Fatalf("final trade = %+v, want end_of_data close", last)
	}
	if !res.FinalCash.Equal(res.InitialCash) {
		t.Fatalf("final cash = %s, want %s for a flat round trip", res.FinalCash, res.InitialCash)
	}
}

func TestRunStopLossAccounting(t *testing.T) {
	bars := seriesWithTail(100, 94, 94)
	r := newRunnerShared([]pr{{0.60, 0.003}, {0.5, 0}, {0.5, 0}})

	res, err := r.Run("AAPL", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 || res.Trades[1].Reason != models.ReasonLongStopLoss {
		t.Fatalf("trades = %+v, want entry then long_stop_loss", res.Trades)
	}
	// Entry: 10 shares at 100. Exit at 94: 60 lost.
	if want := decimal.NewFromInt(9940); !res.FinalCash.Equal(want) {
		t.Fatalf("final cash = %s, want %s", res.FinalCash, want)
	}
	if res.Wins != 0 || res.Losses != 1 {
		t.Fatalf("wins/losses = %d/%d, want 0/1", res.Wins, res.Losses)
	}
}

func TestRunTakeProfitCountsWin(t *testing.T) {
	bars := seriesWithTail(100, 110, 110)
	r := newRunnerShared([]pr{{0.60, 0.003}, {0.5, 0}, {0.5, 0}})

	res, err := r.Run("AAPL", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 || res.Trades[1].Reason != models.ReasonLongTakeProfit {
		t.Fatalf("trades = %+v, want entry then long_take_profit", res.Trades)
	}
	if want := decimal.NewFromInt(10100); !res.FinalCash.Equal(want) {
		t.Fatalf("final cash = %s, want %s", res.FinalCash, want)
	}
	if res.Wins != 1 {
		t.Fatalf("wins = %d, want 1", res.Wins)
	}
	if want := decimal.NewFromFloat(0.01); !res.ReturnPct().Equal(want) {
		t.Fatalf("return = %s, want %s", res.ReturnPct(), want)
	}
}

func TestRunReversalExitAlwaysActive(t *testing.T) {
	bars := seriesWithTail(100, 100, 100)
	// Flat price; only the opposing signal can close the long.
	r := newRunnerShared([]pr{{0.60, 0.003}, {0.40, -0.003}, {0.5, 0}})

	res, err := r.Run("AAPL", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 || res.Trades[1].Reason != models.ReasonSignalReverse {
		t.Fatalf("trades = %+v, want signal_reverse close", res.Trades)
	}
}

func TestRunShortRoundTrip(t *testing.T) {
	bars := seriesWithTail(100, 90, 90)
	r := newRunnerShared([]pr{{0.20, -0.007}, {0.5, 0}, {0.5, 0}})

	res, err := r.Run("AAPL", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Trades[0].Direction != models.DirectionShort || res.Trades[0].Action != models.ActionSell {
		t.Fatalf("entry = %+v, want short sell", res.Trades[0])
	}
	if res.Trades[1].Reason != models.ReasonShortTakeProfit {
		t.Fatalf("exit = %+v, want short_take_profit", res.Trades[1])
	}
	// 10 shares shorted at 100, covered at 90: 100 gained.
	if want := decimal.NewFromInt(10100); !res.FinalCash.Equal(want) {
		t.Fatalf("final cash = %s, want %s", res.FinalCash, want)
	}
}

func TestRunRequiresHistory(t *testing.T) {
	bars := seriesWithTail()[:features.MinBars-10]
	r := newRunnerShared(nil)
	if _, err := r.Run("AAPL", bars); err == nil {
		t.Fatal("Run accepted a series with too little history")
	}
}
