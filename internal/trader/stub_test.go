package trader

import (
	"context"

	"github.com/shopspring/decimal"

	"stockbot/internal/broker"
	"stockbot/internal/features"
	"stockbot/internal/marketdata"
	"stockbot/internal/models"
)

type orderCall struct {
	symbol string
	qty    int64
	side   broker.Side
}

type stubBroker struct {
	marketOpen    bool
	marketOpenErr error
	cash          decimal.Decimal
	cashErr       error
	held          map[string]struct{}
	heldErr       error
	submitErr     error
	closeErr      error
	onCash        func()

	orders []orderCall
	closes []string
}

func newStubBroker(cash float64) *stubBroker {
	return &stubBroker{
		marketOpen: true,
		cash:       decimal.NewFromFloat(cash),
		held:       map[string]struct{}{},
	}
}

func (b *stubBroker) IsMarketOpen(context.Context) (bool, error) {
	return b.marketOpen, b.marketOpenErr
}

func (b *stubBroker) CashBalance(context.Context) (decimal.Decimal, error) {
	if b.onCash != nil {
		b.onCash()
	}
	return b.cash, b.cashErr
}

func (b *stubBroker) OpenPositions(context.Context) (map[string]struct{}, error) {
	if b.heldErr != nil {
		return nil, b.heldErr
	}
	out := map[string]struct{}{}
	for s := range b.held {
		out[s] = struct{}{}
	}
	return out, nil
}

func (b *stubBroker) SubmitOrder(_ context.Context, symbol string, qty int64, side broker.Side) error {
	if b.submitErr != nil {
		return b.submitErr
	}
	b.orders = append(b.orders, orderCall{symbol: symbol, qty: qty, side: side})
	b.held[symbol] = struct{}{}
	return nil
}

func (b *stubBroker) ClosePosition(_ context.Context, symbol string) error {
	if b.closeErr != nil {
		return b.closeErr
	}
	b.closes = append(b.closes, symbol)
	delete(b.held, symbol)
	return nil
}

type stubMarket struct {
	bars   map[string][]marketdata.Bar
	prices map[string]decimal.Decimal
}

func (m *stubMarket) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, marketdata.ErrNoData
	}
	return p, nil
}

func (m *stubMarket) RecentBars(_ context.Context, symbol string, _ int) ([]marketdata.Bar, error) {
	bars, ok := m.bars[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return bars, nil
}

// scriptedSignal drives both models from one place so a test can steer the
// evaluator between cycles.
type scriptedSignal struct {
	p   float64
	r   float64
	err error
}

func (s *scriptedSignal) PredictProba(features.Row) (float64, error) { return s.p, s.err }
func (s *scriptedSignal) Predict(features.Row) (float64, error)      { return s.r, s.err }

type memLedger struct {
	records []models.TradeRecord
	err     error
}

func (l *memLedger) Append(_ context.Context, rec *models.TradeRecord) error {
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, *rec)
	return nil
}

func (l *memLedger) byReason(reason string) []models.TradeRecord {
	var out []models.TradeRecord
	for _, r := range l.records {
		if r.Reason == reason {
			out = append(out, r)
		}
	}
	return out
}
