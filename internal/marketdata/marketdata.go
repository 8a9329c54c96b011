package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData marks an absent price or bar series for a symbol; the symbol is
// skipped for the cycle, not failed.
var ErrNoData = errors.New("no market data")

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Provider supplies the latest tradable price and recent intraday bars.
type Provider interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	RecentBars(ctx context.Context, symbol string, limit int) ([]Bar, error)
}
