package ingest

import (
	"context"
	"log/slog"

	"botpanel/internal/metrics"
	"botpanel/internal/telegram"
)

// Ingestor records updates pushed by the platform through a webhook. It
// shares the normalize/dedup/persist path and the per-bot guard with Syncer.
type Ingestor struct {
	store   EventStore
	guard   *Guard
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewIngestor returns an Ingestor writing to store. Pass the Syncer's guard
// so pushed and polled updates for a bot never interleave; nil gives the
// Ingestor a guard of its own.
func NewIngestor(store EventStore, guard *Guard, metricRegistry *metrics.Metrics, logger *slog.Logger) *Ingestor {
	if guard == nil {
		guard = NewGuard(nil, 0)
	}
	return &Ingestor{
		store:   store,
		guard:   guard,
		metrics: metricRegistry,
		logger:  logger.With("component", "webhook_ingest"),
	}
}

// HandleUpdate persists update for botID and reports whether an event was saved.
// Updates already recorded are ignored. The cursor follows the update id.
func (i *Ingestor) HandleUpdate(ctx context.Context, botID string, update telegram.Update) (bool, error) {
	release, err := i.guard.AcquireWait(ctx, botID)
	if err != nil {
		return false, err
	}
	defer release()

	seen, err := i.store.UpdateIDs(ctx, botID)
	if err != nil {
		i.metrics.IncError("webhook")
		return false, err
	}
	saved, err := apply(ctx, i.store, botID, update, seen)
	if err != nil {
		i.metrics.IncError("webhook")
		i.logger.Error("failed ingesting update", "bot_id", botID, "update_id", update.UpdateID, "error", err)
		return false, err
	}
	if update.UpdateID > 0 {
		if _, err := i.store.SetCursor(ctx, botID, update.UpdateID); err != nil {
			return saved, err
		}
	}
	if i.metrics != nil {
		outcome := "duplicate_or_empty"
		if saved {
			outcome = "saved"
		}
		i.metrics.SyncUpdates.WithLabelValues(outcome).Inc()
	}
	return saved, nil
}
