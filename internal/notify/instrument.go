package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/metrics"
)

type instrumented struct {
	Notifier
	logger *zap.Logger
}

// Instrument wraps n so every attempt is counted and logged under its name.
func Instrument(n Notifier, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return instrumented{Notifier: n, logger: logger.Named("notify")}
}

func (i instrumented) Notify(ctx context.Context, change Change) error {
	err := i.Notifier.Notify(ctx, change)
	metrics.RecordNotification(i.Name(), err)
	if err != nil {
		i.logger.Warn("change notification failed",
			zap.String("notifier", i.Name()), zap.String("sync_id", change.SyncID), zap.Error(err))
		return err
	}
	i.logger.Info("change notification sent",
		zap.String("notifier", i.Name()), zap.String("sync_id", change.SyncID))
	return nil
}
