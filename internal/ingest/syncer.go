package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/metrics"
	"botpanel/internal/telegram"
)

// DefaultPageSize is the number of updates requested per sync.
const DefaultPageSize = 100

// UpdatesFetcher pulls pending updates from the platform.
type UpdatesFetcher interface {
	GetUpdates(ctx context.Context, token string, offset int64, limit int) ([]telegram.Update, error)
}

// EventStore is the slice of the store the ingestion path writes to.
type EventStore interface {
	Cursor(ctx context.Context, botID string) (int64, error)
	SetCursor(ctx context.Context, botID string, updateID int64) (bool, error)
	UpdateIDs(ctx context.Context, botID string) (map[int64]struct{}, error)
	UpsertUser(ctx context.Context, botID string, patch domain.UserPatch) (domain.User, error)
	AppendEvent(ctx context.Context, botID string, ev domain.Event) (domain.Event, error)
}

// Result reports one sync run. Processed counts events saved; Total counts
// updates received.
type Result struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Syncer pulls one page of updates per call and persists what is new.
type Syncer struct {
	store    EventStore
	fetcher  UpdatesFetcher
	guard    *Guard
	pageSize int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSyncer builds a Syncer. guard may be nil for an in-process guard.
func NewSyncer(store EventStore, fetcher UpdatesFetcher, guard *Guard, pageSize int, metricRegistry *metrics.Metrics, logger *slog.Logger) *Syncer {
	if guard == nil {
		guard = NewGuard(nil, 0)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Syncer{
		store:    store,
		fetcher:  fetcher,
		guard:    guard,
		pageSize: pageSize,
		metrics:  metricRegistry,
		logger:   logger.With("component", "sync"),
	}
}

// Sync fetches updates after the bot's cursor, records unseen ones and moves
// the cursor to the highest update id received. On a fetch failure nothing is
// written; on a store failure already persisted updates stay and the cursor
// is left alone, so the next run re-fetches and deduplicates them.
func (s *Syncer) Sync(ctx context.Context, botID, token string) (Result, error) {
	if domain.IsDemoToken(token) {
		return Result{}, nil
	}

	release, err := s.guard.Acquire(ctx, botID)
	if err != nil {
		s.observe("skipped", 0)
		return Result{}, err
	}
	defer release()

	start := time.Now()
	res, err := s.syncOnce(ctx, botID, token)
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.IncError("sync")
		s.logger.Error("bot sync failed", "bot_id", botID, "error", err)
	} else if res.Total > 0 {
		s.logger.Info("bot synced", "bot_id", botID, "processed", res.Processed, "total", res.Total)
	}
	s.observe(status, time.Since(start))
	return res, err
}

func (s *Syncer) observe(status string, took time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRuns.WithLabelValues(status).Inc()
	if took > 0 {
		s.metrics.SyncDuration.Observe(took.Seconds())
	}
}

func (s *Syncer) syncOnce(ctx context.Context, botID, token string) (Result, error) {
	cursor, err := s.store.Cursor(ctx, botID)
	if err != nil {
		return Result{}, err
	}

	offset := cursor
	if cursor > 0 {
		offset = cursor + 1
	}
	updates, err := s.fetcher.GetUpdates(ctx, token, offset, s.pageSize)
	if err != nil {
		return Result{}, fmt.Errorf("fetch updates: %w", err)
	}
	res := Result{Total: len(updates)}
	if len(updates) == 0 {
		return res, nil
	}

	seen, err := s.store.UpdateIDs(ctx, botID)
	if err != nil {
		return res, err
	}

	maxID := cursor
	for _, u := range updates {
		saved, err := apply(ctx, s.store, botID, u, seen)
		if err != nil {
			return res, err
		}
		if saved {
			res.Processed++
		}
		s.countUpdate(saved, u)
		if u.UpdateID > maxID {
			maxID = u.UpdateID
		}
	}

	if _, err := s.store.SetCursor(ctx, botID, maxID); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Syncer) countUpdate(saved bool, u telegram.Update) {
	if s.metrics == nil {
		return
	}
	outcome := "ignored"
	switch {
	case saved:
		outcome = "saved"
	case u.UpdateID > 0:
		outcome = "duplicate_or_empty"
	}
	s.metrics.SyncUpdates.WithLabelValues(outcome).Inc()
}

// apply persists one update unless its id is already in seen. It reports
// whether an event was saved and records the id in seen.
func apply(ctx context.Context, store EventStore, botID string, u telegram.Update, seen map[int64]struct{}) (bool, error) {
	if _, dup := seen[u.UpdateID]; dup {
		return false, nil
	}

	user, ev := Normalize(u)
	if user != nil {
		if _, err := store.UpsertUser(ctx, botID, *user); err != nil {
			return false, fmt.Errorf("save user %d: %w", user.ID, err)
		}
	}
	if ev == nil {
		return false, nil
	}
	ev.UpdateID = domain.Int64Ptr(u.UpdateID)
	if _, err := store.AppendEvent(ctx, botID, *ev); err != nil {
		return false, fmt.Errorf("save event for update %d: %w", u.UpdateID, err)
	}
	seen[u.UpdateID] = struct{}{}
	return true, nil
}

// IsBusy reports whether err means another sync of the bot is running.
func IsBusy(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}
