package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockbot/internal/models"
	"stockbot/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- trade ledger -----------------------------------------------------------

func (s *Store) InsertTradeRecord(ctx context.Context, item *models.TradeRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTradeRecords(ctx context.Context, params repository.ListTradeRecordsParams) ([]models.TradeRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.tradeQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "timestamp")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TradeRecord
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTradeRecords(ctx context.Context, params repository.ListTradeRecordsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.tradeQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) tradeQuery(ctx context.Context, params repository.ListTradeRecordsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.TradeRecord{})
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Reason != nil && strings.TrimSpace(*params.Reason) != "" {
		query = query.Where("reason = ?", strings.TrimSpace(*params.Reason))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("timestamp >= ?", *params.Since)
	}
	return query
}

// --- position mirror --------------------------------------------------------

func (s *Store) UpsertOpenPosition(ctx context.Context, item *models.PositionRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"direction", "quantity", "entry_price", "current_price",
			"capital_allocated", "unrealized_pnl", "status", "opened_at",
			"closed_at", "updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) CloseOpenPosition(ctx context.Context, symbol string, closedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.PositionRecord{}).
		Where("symbol = ?", symbol).
		Where("status = ?", "open").
		Updates(map[string]any{
			"status":    "closed",
			"closed_at": closedAt,
		}).Error
}

func (s *Store) UpdatePositionPrice(ctx context.Context, symbol string, price decimal.Decimal, unrealized decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.PositionRecord{}).
		Where("symbol = ?", symbol).
		Where("status = ?", "open").
		Updates(map[string]any{
			"current_price":  price,
			"unrealized_pnl": unrealized,
		}).Error
}

func (s *Store) ListOpenPositions(ctx context.Context) ([]models.PositionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PositionRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", "open").
		Order("opened_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- equity history ---------------------------------------------------------

func (s *Store) InsertEquitySnapshot(ctx context.Context, item *models.EquitySnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListEquitySnapshots(ctx context.Context, since time.Time, limit int) ([]models.EquitySnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.EquitySnapshot{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var items []models.EquitySnapshot
	err := query.Order("created_at desc").Limit(normalizeLimit(limit, 200)).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
