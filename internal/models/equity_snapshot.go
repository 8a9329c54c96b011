package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EquitySnapshot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Cash          decimal.Decimal `gorm:"type:numeric(30,6);not null"`
	OpenPositions int             `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (EquitySnapshot) TableName() string {
	return "equity_snapshots"
}
