package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stockbot/internal/broker"
	"stockbot/internal/models"
	"stockbot/internal/repository"
	"stockbot/internal/trader"
)

// EquitySnapshotService records the account's cash and open position count
// on a schedule, building the equity curve the API serves.
type EquitySnapshotService struct {
	Repo   repository.Repository
	Broker broker.Broker
	Engine *trader.Engine
	Logger *zap.Logger
}

func (s *EquitySnapshotService) SnapshotEquity(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Broker == nil {
		return nil
	}
	cash, err := s.Broker.CashBalance(ctx)
	if err != nil {
		return err
	}
	openCount := 0
	if s.Engine != nil {
		openCount = len(s.Engine.Snapshot())
	}
	item := &models.EquitySnapshot{
		Cash:          cash,
		OpenPositions: openCount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Repo.InsertEquitySnapshot(ctx, item); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("equity snapshot recorded",
			zap.String("cash", cash.String()),
			zap.Int("open_positions", openCount),
		)
	}
	return nil
}
