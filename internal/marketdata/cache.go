package marketdata

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceCache holds the most recent streamed trade price per symbol.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]cachedPrice
}

type cachedPrice struct {
	price decimal.Decimal
	at    time.Time
}

func NewPriceCache() *PriceCache {
	return &PriceCache{prices: map[string]cachedPrice{}}
}

func (c *PriceCache) Set(symbol string, price decimal.Decimal, at time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.prices[symbol] = cachedPrice{price: price, at: at}
	c.mu.Unlock()
}

// Get returns the cached price when it is no older than maxAge.
func (c *PriceCache) Get(symbol string, maxAge time.Duration, now time.Time) (decimal.Decimal, bool) {
	if c == nil {
		return decimal.Zero, false
	}
	c.mu.RLock()
	entry, ok := c.prices[symbol]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	if maxAge > 0 && now.Sub(entry.at) > maxAge {
		return decimal.Zero, false
	}
	return entry.price, true
}
