package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"stockbot/internal/models"
	"stockbot/internal/repository"
)

// Ledger is the append-only record of executed trades. The database row is
// the source of truth; the CSV mirror exists for offline analysis and is
// best effort.
type Ledger struct {
	Repo    repository.Repository
	CSVPath string
	Logger  *zap.Logger
}

// Append persists one executed trade. Callers append only after the broker
// accepted the order, never before.
func (l *Ledger) Append(ctx context.Context, rec *models.TradeRecord) error {
	if l == nil || l.Repo == nil {
		return fmt.Errorf("ledger not configured")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := l.Repo.InsertTradeRecord(ctx, rec); err != nil {
		return fmt.Errorf("insert trade record: %w", err)
	}
	if l.CSVPath != "" {
		if err := l.appendCSV(rec); err != nil && l.Logger != nil {
			l.Logger.Warn("trade csv mirror failed", zap.Error(err), zap.String("path", l.CSVPath))
		}
	}
	return nil
}

func (l *Ledger) appendCSV(rec *models.TradeRecord) error {
	_, statErr := os.Stat(l.CSVPath)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.CSVPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write([]string{"timestamp", "symbol", "action", "price", "qty", "reason", "direction"}); err != nil {
			return err
		}
	}
	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Symbol,
		rec.Action,
		rec.Price.String(),
		fmt.Sprintf("%d", rec.Quantity),
		rec.Reason,
		rec.Direction,
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
