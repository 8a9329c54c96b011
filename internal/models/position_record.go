package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionRecord mirrors the engine's in-memory position state for the API
// and for post-restart inspection. The broker remains authoritative; this
// row is advisory and is never used to rebuild live state.
type PositionRecord struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Symbol string `gorm:"type:varchar(16);not null;uniqueIndex"`

	Direction string `gorm:"type:varchar(10);not null"`

	Quantity         int64           `gorm:"not null"`
	EntryPrice       decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CurrentPrice     decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	CapitalAllocated decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`
	UnrealizedPnL    decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,6);not null;default:0"`

	Status   string     `gorm:"type:varchar(20);not null;default:'open';index"`
	OpenedAt time.Time  `gorm:"type:timestamptz;not null"`
	ClosedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PositionRecord) TableName() string {
	return "position_records"
}
