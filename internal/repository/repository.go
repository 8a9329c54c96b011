package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockbot/internal/models"
)

type ListTradeRecordsParams struct {
	Symbol  *string
	Reason  *string
	Since   *time.Time
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool
}

// Repository is the persistence surface of the bot: the append-only trade
// ledger plus advisory position/equity rows for the read API.
type Repository interface {
	// Trade ledger (append-only).
	InsertTradeRecord(ctx context.Context, item *models.TradeRecord) error
	ListTradeRecords(ctx context.Context, params ListTradeRecordsParams) ([]models.TradeRecord, error)
	CountTradeRecords(ctx context.Context, params ListTradeRecordsParams) (int64, error)

	// Position mirror.
	UpsertOpenPosition(ctx context.Context, item *models.PositionRecord) error
	CloseOpenPosition(ctx context.Context, symbol string, closedAt time.Time) error
	UpdatePositionPrice(ctx context.Context, symbol string, price decimal.Decimal, unrealized decimal.Decimal) error
	ListOpenPositions(ctx context.Context) ([]models.PositionRecord, error)

	// Equity history.
	InsertEquitySnapshot(ctx context.Context, item *models.EquitySnapshot) error
	ListEquitySnapshots(ctx context.Context, since time.Time, limit int) ([]models.EquitySnapshot, error)
}
