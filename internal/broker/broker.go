package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrDataUnavailable marks a missing price/bars/account read. Callers skip
// the symbol for the cycle instead of treating it as fatal.
var ErrDataUnavailable = errors.New("data unavailable")

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderError wraps a rejected or failed submission. Position state must not
// change when one is returned; local and broker state would desync.
type OrderError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// Broker is the account and order gateway consumed by the trading engine.
type Broker interface {
	IsMarketOpen(ctx context.Context) (bool, error)
	CashBalance(ctx context.Context) (decimal.Decimal, error)
	OpenPositions(ctx context.Context) (map[string]struct{}, error)
	SubmitOrder(ctx context.Context, symbol string, qty int64, side Side) error
	ClosePosition(ctx context.Context, symbol string) error
}
