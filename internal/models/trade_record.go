package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TradeRecord is one immutable ledger line per submitted action.
// Rows are append-only; nothing updates or deletes them.
type TradeRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Timestamp time.Time `gorm:"type:timestamptz;not null;index"`
	Symbol    string    `gorm:"type:varchar(16);not null;index"`
	Action    string    `gorm:"type:varchar(10);not null"`
	Direction string    `gorm:"type:varchar(10);not null"`
	Reason    string    `gorm:"type:varchar(30);not null;index"`

	Price    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Quantity int64           `gorm:"not null"`

	// Payload carries the model outputs (probability, predicted return)
	// that drove the decision, for post-trade review.
	Payload datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}

const (
	ActionBuy   = "buy"
	ActionSell  = "sell"
	ActionClose = "close"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

const (
	ReasonLongEntry       = "long_entry"
	ReasonShortEntry      = "short_entry"
	ReasonLongStopLoss    = "long_stop_loss"
	ReasonShortStopLoss   = "short_stop_loss"
	ReasonLongTakeProfit  = "long_take_profit"
	ReasonShortTakeProfit = "short_take_profit"
	ReasonSignalReverse   = "signal_reverse"
	ReasonEndOfData       = "end_of_data"
	ReasonExternalClose   = "external_close"
)
