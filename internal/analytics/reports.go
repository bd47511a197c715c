package analytics

import (
	"context"
	"sort"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/store"
)

// Default windows for reports, in days.
const (
	DefaultActionsDays  = 7
	DefaultSessionsDays = 30
)

// DefaultUTMSource labels users without attribution.
const DefaultUTMSource = "direct"

// ActionStat is one row of the actions report.
type ActionStat struct {
	Name     string `json:"name"`
	Requests int    `json:"requests"`
	Users    int    `json:"users"`
}

// UTMStat is one row of the attribution report.
type UTMStat struct {
	Source      string `json:"source"`
	Users       int    `json:"users"`
	Conversions int    `json:"conversions"`
}

// BounceStat counts, for one attribution channel, users who left after a
// single start interaction.
type BounceStat struct {
	Channel     string  `json:"channel"`
	Total       int     `json:"total"`
	Bounced     int     `json:"bounced"`
	Rate        float64 `json:"rate"`
	RatePercent float64 `json:"ratePercent"`
}

// WeekdayStat is one row of the sessions-by-weekday report.
type WeekdayStat struct {
	Day         string  `json:"day"`
	Sessions    int     `json:"sessions"`
	AvgDuration float64 `json:"avgDuration"`
	AvgActions  float64 `json:"avgActions"`
}

// weekdays lists report rows Monday first.
var weekdays = []struct {
	code string
	day  time.Weekday
}{
	{"Mon", time.Monday},
	{"Tue", time.Tuesday},
	{"Wed", time.Wednesday},
	{"Thu", time.Thursday},
	{"Fri", time.Friday},
	{"Sat", time.Saturday},
	{"Sun", time.Sunday},
}

// ActionsReport counts requests and distinct users per action over the last
// days days, busiest first. Events without an action fall back to their type.
func (a *Aggregator) ActionsReport(ctx context.Context, botID string, days int) ([]ActionStat, error) {
	if days <= 0 {
		days = DefaultActionsDays
	}
	cutoff := a.now().AddDate(0, 0, -days)
	events, err := a.source.QueryEvents(ctx, botID, store.EventFilter{Start: &cutoff})
	if err != nil {
		return nil, err
	}

	type acc struct {
		requests int
		users    map[int64]struct{}
	}
	var names []string
	stats := make(map[string]*acc)
	for _, ev := range events {
		name := ev.Action
		if name == "" {
			name = string(ev.Type)
		}
		if name == "" {
			name = "unknown"
		}
		s, ok := stats[name]
		if !ok {
			s = &acc{users: make(map[int64]struct{})}
			stats[name] = s
			names = append(names, name)
		}
		s.requests++
		s.users[ev.UserID] = struct{}{}
	}

	out := make([]ActionStat, 0, len(names))
	for _, name := range names {
		out = append(out, ActionStat{Name: name, Requests: stats[name].requests, Users: len(stats[name].users)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Requests > out[j].Requests })
	return out, nil
}

// UTMReport counts users per attribution source in first-seen order.
// Conversions are not tracked and always zero.
func (a *Aggregator) UTMReport(ctx context.Context, botID string) ([]UTMStat, error) {
	users, err := a.source.ListUsers(ctx, botID)
	if err != nil {
		return nil, err
	}
	var order []string
	counts := make(map[string]int)
	for _, u := range users {
		source := u.UTMSource
		if source == "" {
			source = DefaultUTMSource
		}
		if _, ok := counts[source]; !ok {
			order = append(order, source)
		}
		counts[source]++
	}
	out := make([]UTMStat, 0, len(order))
	for _, source := range order {
		out = append(out, UTMStat{Source: source, Users: counts[source]})
	}
	return out, nil
}

// BounceReport groups users by attribution channel and counts those whose
// entire history is one start-like event. Channels appear in first-seen order.
func (a *Aggregator) BounceReport(ctx context.Context, botID string) ([]BounceStat, error) {
	users, err := a.source.ListUsers(ctx, botID)
	if err != nil {
		return nil, err
	}
	events, err := a.source.QueryEvents(ctx, botID, store.EventFilter{})
	if err != nil {
		return nil, err
	}

	perUser := make(map[int64][]domain.Event)
	for _, ev := range events {
		perUser[ev.UserID] = append(perUser[ev.UserID], ev)
	}

	out := []BounceStat{}
	index := make(map[string]int)
	for _, u := range users {
		channel := u.UTMSource
		if channel == "" {
			channel = DefaultUTMSource
		}
		i, ok := index[channel]
		if !ok {
			i = len(out)
			index[channel] = i
			out = append(out, BounceStat{Channel: channel})
		}
		out[i].Total++
		if evs := perUser[u.ID]; len(evs) == 1 && isStartLike(evs[0]) {
			out[i].Bounced++
		}
	}
	for i := range out {
		out[i].Rate = float64(out[i].Bounced) / float64(out[i].Total)
		out[i].RatePercent = round1(out[i].Rate * 100)
	}
	return out, nil
}

func isStartLike(ev domain.Event) bool {
	return ev.Action == "/start" || ev.Type == "start"
}

// SessionsReport averages session length (minutes) and events per session by
// weekday for sessions started in the last days days. Rows run Monday to Sunday.
func (a *Aggregator) SessionsReport(ctx context.Context, botID string, days int) ([]WeekdayStat, error) {
	if days <= 0 {
		days = DefaultSessionsDays
	}
	sessions, err := a.ComputeSessions(ctx, botID)
	if err != nil {
		return nil, err
	}
	cutoff := a.now().AddDate(0, 0, -days)

	type acc struct {
		count    int
		duration time.Duration
		actions  int
	}
	buckets := make(map[time.Weekday]*acc, 7)
	for _, wd := range weekdays {
		buckets[wd.day] = &acc{}
	}
	for _, s := range sessions {
		if s.StartTime.Before(cutoff) {
			continue
		}
		b := buckets[s.StartTime.In(a.loc).Weekday()]
		b.count++
		b.duration += s.Duration()
		b.actions += len(s.Events)
	}

	out := make([]WeekdayStat, 0, 7)
	for _, wd := range weekdays {
		b := buckets[wd.day]
		row := WeekdayStat{Day: wd.code, Sessions: b.count}
		if b.count > 0 {
			row.AvgDuration = round1(b.duration.Minutes() / float64(b.count))
			row.AvgActions = round1(float64(b.actions) / float64(b.count))
		}
		out = append(out, row)
	}
	return out, nil
}
