// Package store keeps per-bot events, users and sync cursors, plus the bot
// registry, as JSON documents in a repo.BlobStore.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"botpanel/internal/metrics"
	"botpanel/internal/repo"

	"github.com/google/uuid"
)

// MaxEventsPerBot bounds each bot's event log; the oldest events are evicted first.
const MaxEventsPerBot = 10000

var (
	ErrBotNotFound   = errors.New("bot not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
)

// Store is the Event Store and User Store.
//
// Writes are read-modify-write cycles over a whole partition, serialized by mu.
type Store struct {
	blobs     repo.BlobStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	maxEvents int

	mu sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithMaxEvents overrides the per-bot retention bound.
func WithMaxEvents(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New returns a Store over blobs.
func New(blobs repo.BlobStore, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		blobs:     blobs,
		logger:    logger.With("component", "store"),
		now:       time.Now,
		newID:     uuid.NewString,
		maxEvents: MaxEventsPerBot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func eventsKey(botID string) string { return "events:" + botID }
func usersKey(botID string) string  { return "users:" + botID }
func cursorKey(botID string) string { return "cursor:" + botID }

const botsKey = "bots"

// loadList reads a JSON array. A missing key is an empty list; a corrupt
// document is logged and also read as empty.
func loadList[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, ok, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Error("corrupt stored document, reading as empty", "key", key, "error", err)
		s.metrics.IncError("store")
		return nil, nil
	}
	return out, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.blobs.Set(ctx, key, data); err != nil {
		s.metrics.IncError("store")
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
