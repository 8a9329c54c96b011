package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockbot/internal/marketdata"
	"stockbot/internal/models"
	"stockbot/internal/repository"
)

// PositionSyncService keeps the database position mirror priced. The engine
// writes the mirror rows at open and close; this service refreshes current
// price and unrealized PnL in between.
type PositionSyncService struct {
	Repo   repository.Repository
	Market marketdata.Provider
	Logger *zap.Logger
}

func (s *PositionSyncService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Repo == nil || s.Market == nil {
		return nil
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := s.RefreshOpenPositionPrices(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("position price refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *PositionSyncService) RefreshOpenPositionPrices(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Market == nil {
		return nil
	}
	items, err := s.Repo.ListOpenPositions(ctx)
	if err != nil || len(items) == 0 {
		return err
	}
	for _, pos := range items {
		price, err := s.Market.LatestPrice(ctx, pos.Symbol)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Debug("no price for open position", zap.String("symbol", pos.Symbol))
			}
			continue
		}
		unrealized := price.Sub(pos.EntryPrice)
		if pos.Direction == models.DirectionShort {
			unrealized = unrealized.Neg()
		}
		unrealized = unrealized.Mul(decimal.NewFromInt(pos.Quantity))
		if err := s.Repo.UpdatePositionPrice(ctx, pos.Symbol, price, unrealized); err != nil {
			return err
		}
	}
	return nil
}
