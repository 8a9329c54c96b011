package yahoo

import (
	"context"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"stockbot/internal/marketdata"
)

// Provider serves prices and 1-minute bars from Yahoo Finance.
type Provider struct{}

func (p *Provider) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return decimal.Zero, marketdata.ErrNoData
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return decimal.Zero, marketdata.ErrNoData
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), nil
}

func (p *Provider) RecentBars(ctx context.Context, symbol string, limit int) ([]marketdata.Bar, error) {
	if limit <= 0 {
		limit = 400
	}
	// 1-minute bars only exist intraday; pull enough calendar days to cover
	// the requested count across sessions (390 bars per session).
	days := limit/390 + 2
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneMin,
	}
	iter := chart.Get(params)

	var bars []marketdata.Bar
	for iter.Next() {
		b := iter.Bar()
		open, _ := b.Open.Float64()
		high, _ := b.High.Float64()
		low, _ := b.Low.Float64()
		closePx, _ := b.Close.Float64()
		bars = append(bars, marketdata.Bar{
			Time:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, marketdata.ErrNoData
	}
	if len(bars) == 0 {
		return nil, marketdata.ErrNoData
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
