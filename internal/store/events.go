package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"botpanel/internal/domain"
)

// EventFilter narrows QueryEvents. Zero values match everything; bounds are inclusive.
type EventFilter struct {
	Start  *time.Time
	End    *time.Time
	Type   domain.EventType
	UserID *int64
}

func (f EventFilter) match(e domain.Event) bool {
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Timestamp.After(*f.End) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	return true
}

// AppendEvent persists ev for botID, filling a missing id or timestamp, and
// returns the stored event.
func (s *Store) AppendEvent(ctx context.Context, botID string, ev domain.Event) (domain.Event, error) {
	stored, err := s.AppendEvents(ctx, botID, []domain.Event{ev})
	if err != nil {
		return domain.Event{}, err
	}
	return stored[0], nil
}

// AppendEvents persists a batch with the same semantics as AppendEvent in one write.
func (s *Store) AppendEvents(ctx context.Context, botID string, evs []domain.Event) ([]domain.Event, error) {
	if len(evs) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.Event, len(evs))
	for i, ev := range evs {
		if ev.ID == "" {
			ev.ID = s.newID()
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = s.now().UTC()
		}
		stored[i] = ev
	}

	events, err := loadList[domain.Event](ctx, s, eventsKey(botID))
	if err != nil {
		return nil, err
	}
	events = append(events, stored...)
	if over := len(events) - s.maxEvents; over > 0 {
		events = append([]domain.Event(nil), events[over:]...)
	}
	if err := s.save(ctx, eventsKey(botID), events); err != nil {
		s.logger.Error("failed saving events", "bot_id", botID, "count", len(stored), "error", err)
		return nil, err
	}

	if s.metrics != nil {
		for _, ev := range stored {
			s.metrics.EventsAppended.WithLabelValues(string(ev.Type)).Inc()
		}
	}
	return stored, nil
}

// QueryEvents returns the bot's events matching f in insertion order.
func (s *Store) QueryEvents(ctx context.Context, botID string, f EventFilter) ([]domain.Event, error) {
	events, err := loadList[domain.Event](ctx, s, eventsKey(botID))
	if err != nil {
		return nil, err
	}
	out := events[:0]
	for _, ev := range events {
		if f.match(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// GetEvent returns the event with the given id.
func (s *Store) GetEvent(ctx context.Context, botID, eventID string) (domain.Event, error) {
	events, err := loadList[domain.Event](ctx, s, eventsKey(botID))
	if err != nil {
		return domain.Event{}, err
	}
	for _, ev := range events {
		if ev.ID == eventID {
			return ev, nil
		}
	}
	return domain.Event{}, ErrEventNotFound
}

// UpdateIDs returns the set of platform update ids already recorded for botID.
func (s *Store) UpdateIDs(ctx context.Context, botID string) (map[int64]struct{}, error) {
	events, err := loadList[domain.Event](ctx, s, eventsKey(botID))
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]struct{}, len(events))
	for _, ev := range events {
		if ev.UpdateID != nil {
			ids[*ev.UpdateID] = struct{}{}
		}
	}
	return ids, nil
}

// DeleteEvent removes the first event whose id, or update id in decimal form,
// equals ref. It returns the removed event or ErrEventNotFound.
func (s *Store) DeleteEvent(ctx context.Context, botID, ref string) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := loadList[domain.Event](ctx, s, eventsKey(botID))
	if err != nil {
		return domain.Event{}, err
	}
	for i, ev := range events {
		if ev.ID == ref || (ev.UpdateID != nil && strconv.FormatInt(*ev.UpdateID, 10) == ref) {
			events = append(events[:i], events[i+1:]...)
			if err := s.save(ctx, eventsKey(botID), events); err != nil {
				return domain.Event{}, err
			}
			return ev, nil
		}
	}
	return domain.Event{}, ErrEventNotFound
}

// DeleteUserEvents removes every event of userID and returns how many were removed.
func (s *Store) DeleteUserEvents(ctx context.Context, botID string, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := loadList[domain.Event](ctx, s, eventsKey(botID))
	if err != nil {
		return 0, err
	}
	kept := events[:0]
	for _, ev := range events {
		if ev.UserID != userID {
			kept = append(kept, ev)
		}
	}
	removed := len(events) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(ctx, eventsKey(botID), kept); err != nil {
		return 0, fmt.Errorf("delete user events: %w", err)
	}
	return removed, nil
}
