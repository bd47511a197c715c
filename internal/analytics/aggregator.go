// Package analytics derives audience statistics, sessions and reports from
// stored events and users.
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/store"
)

// SessionTimeout is the largest gap between two events of one session.
const SessionTimeout = 30 * time.Minute

// Source is the read side of the store the aggregator works on.
type Source interface {
	QueryEvents(ctx context.Context, botID string, f store.EventFilter) ([]domain.Event, error)
	ListUsers(ctx context.Context, botID string) ([]domain.User, error)
}

// Aggregator computes statistics over a bot's events and users. Calendar
// boundaries (today, weekday) use loc.
type Aggregator struct {
	source Source
	now    func() time.Time
	loc    *time.Location
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the zone used for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// New returns an Aggregator reading from source.
func New(source Source, opts ...Option) *Aggregator {
	a := &Aggregator{source: source, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ComputeStats counts users, distinct active users per window, events and sessions.
// DAU starts at local midnight, WAU seven days ago, MAU one calendar month ago.
func (a *Aggregator) ComputeStats(ctx context.Context, botID string) (domain.Stats, error) {
	users, err := a.source.ListUsers(ctx, botID)
	if err != nil {
		return domain.Stats{}, err
	}
	events, err := a.source.QueryEvents(ctx, botID, store.EventFilter{})
	if err != nil {
		return domain.Stats{}, err
	}

	now := a.now().In(a.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := now.AddDate(0, -1, 0)

	return domain.Stats{
		TotalUsers:    len(users),
		DAU:           distinctUsersSince(events, dayStart),
		WAU:           distinctUsersSince(events, weekStart),
		MAU:           distinctUsersSince(events, monthStart),
		TotalEvents:   len(events),
		TotalSessions: len(BuildSessions(events)),
	}, nil
}

func distinctUsersSince(events []domain.Event, since time.Time) int {
	seen := make(map[int64]struct{})
	for _, ev := range events {
		if !ev.Timestamp.Before(since) {
			seen[ev.UserID] = struct{}{}
		}
	}
	return len(seen)
}

// ComputeSessions returns the bot's sessions, see BuildSessions.
func (a *Aggregator) ComputeSessions(ctx context.Context, botID string) ([]domain.Session, error) {
	events, err := a.source.QueryEvents(ctx, botID, store.EventFilter{})
	if err != nil {
		return nil, err
	}
	return BuildSessions(events), nil
}

// BuildSessions groups events per user, orders each group by time and splits
// it wherever two consecutive events are more than SessionTimeout apart.
// Users appear in order of their first event in the input.
func BuildSessions(events []domain.Event) []domain.Session {
	var order []int64
	byUser := make(map[int64][]domain.Event)
	for _, ev := range events {
		if _, ok := byUser[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	var sessions []domain.Session
	for _, userID := range order {
		userEvents := byUser[userID]
		sort.SliceStable(userEvents, func(i, j int) bool {
			return userEvents[i].Timestamp.Before(userEvents[j].Timestamp)
		})

		current := domain.Session{UserID: userID, StartTime: userEvents[0].Timestamp, EndTime: userEvents[0].Timestamp, Events: []domain.Event{userEvents[0]}}
		for _, ev := range userEvents[1:] {
			if ev.Timestamp.Sub(current.EndTime) > SessionTimeout {
				sessions = append(sessions, current)
				current = domain.Session{UserID: userID, StartTime: ev.Timestamp, EndTime: ev.Timestamp}
			}
			current.Events = append(current.Events, ev)
			current.EndTime = ev.Timestamp
		}
		sessions = append(sessions, current)
	}
	return sessions
}

// round1 rounds to one decimal place, half away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
