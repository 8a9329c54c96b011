package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Cached prefers the streamed price cache and falls back to the wrapped
// provider when the cached entry is missing or stale. Bars always come from
// the wrapped provider.
type Cached struct {
	Cache    *PriceCache
	Fallback Provider
	MaxAge   time.Duration

	Now func() time.Time
}

func (c *Cached) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	now := time.Now().UTC()
	if c.Now != nil {
		now = c.Now()
	}
	if price, ok := c.Cache.Get(symbol, c.MaxAge, now); ok {
		return price, nil
	}
	if c.Fallback == nil {
		return decimal.Zero, ErrNoData
	}
	return c.Fallback.LatestPrice(ctx, symbol)
}

func (c *Cached) RecentBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	if c.Fallback == nil {
		return nil, ErrNoData
	}
	return c.Fallback.RecentBars(ctx, symbol, limit)
}
