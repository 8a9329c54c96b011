package trader

import (
	"time"

	"github.com/shopspring/decimal"

	"stockbot/internal/models"
)

// Position is the engine's in-memory record of one open trade. The broker
// remains authoritative; this copy exists to price exits and size the book.
type Position struct {
	Symbol     string
	Direction  string
	Quantity   int64
	EntryPrice decimal.Decimal
	OpenedAt   time.Time
}

// CapitalAllocated is the notional committed at entry.
func (p Position) CapitalAllocated() decimal.Decimal {
	return p.EntryPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedPnL values the position at the given price.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.EntryPrice)
	if p.Direction == models.DirectionShort {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromInt(p.Quantity))
}

// StopPrice is the level at or beyond which the stop-loss fires.
func (p Position) StopPrice(stopLossPct float64) decimal.Decimal {
	pct := decimal.NewFromFloat(stopLossPct)
	if p.Direction == models.DirectionShort {
		return p.EntryPrice.Mul(decimal.NewFromInt(1).Add(pct))
	}
	return p.EntryPrice.Mul(decimal.NewFromInt(1).Sub(pct))
}

// TargetPrice is the level at or beyond which the take-profit fires.
func (p Position) TargetPrice(takeProfitPct float64) decimal.Decimal {
	pct := decimal.NewFromFloat(takeProfitPct)
	if p.Direction == models.DirectionShort {
		return p.EntryPrice.Mul(decimal.NewFromInt(1).Sub(pct))
	}
	return p.EntryPrice.Mul(decimal.NewFromInt(1).Add(pct))
}

// StopHit reports whether price breaches the stop level, inclusive.
func (p Position) StopHit(price decimal.Decimal, stopLossPct float64) bool {
	stop := p.StopPrice(stopLossPct)
	if p.Direction == models.DirectionShort {
		return price.GreaterThanOrEqual(stop)
	}
	return price.LessThanOrEqual(stop)
}

// TargetHit reports whether price breaches the take-profit level, inclusive.
func (p Position) TargetHit(price decimal.Decimal, takeProfitPct float64) bool {
	target := p.TargetPrice(takeProfitPct)
	if p.Direction == models.DirectionShort {
		return price.LessThanOrEqual(target)
	}
	return price.GreaterThanOrEqual(target)
}
