package bots

import (
	"context"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"botpanel/internal/domain"
)

var (
	demoActions = []string{"/start", "/help", "/settings", "/profile", "message"}
	demoUsers   = []domain.UserPatch{
		{
			ID:           1001,
			FirstName:    domain.StringPtr("Иван"),
			LastName:     domain.StringPtr("Иванов"),
			Username:     domain.StringPtr("ivanov"),
			LanguageCode: domain.StringPtr("ru"),
			IsPremium:    domain.BoolPtr(true),
			UTMSource:    domain.StringPtr("telegram"),
			UTMCampaign:  domain.StringPtr("promo"),
		},
		{
			ID:           1002,
			FirstName:    domain.StringPtr("Мария"),
			LastName:     domain.StringPtr("Петрова"),
			Username:     domain.StringPtr("petrova"),
			LanguageCode: domain.StringPtr("ru"),
			IsPremium:    domain.BoolPtr(false),
			UTMSource:    domain.StringPtr("website"),
			UTMCampaign:  domain.StringPtr("main"),
		},
		{
			ID:           1003,
			FirstName:    domain.StringPtr("Алексей"),
			Username:     domain.StringPtr("sidorov"),
			LanguageCode: domain.StringPtr("en"),
			IsPremium:    domain.BoolPtr(true),
			UTMSource:    domain.StringPtr("telegram"),
			UTMCampaign:  domain.StringPtr("referral"),
		},
	}
)

// DemoDays is how many days of history SeedDemoBot generates.
const DemoDays = 7

// SeedDemoBot creates a demo bot for owner with three users and a week of
// random activity. The same seed always yields the same history shape.
func (s *Service) SeedDemoBot(ctx context.Context, owner string, seed uint64) (domain.Bot, error) {
	now := s.now().UTC()
	bot := domain.Bot{
		ID:        "demo_bot_" + strconv.FormatInt(now.UnixMilli(), 10),
		Name:      "Demo bot",
		Username:  "demo_bot",
		Token:     domain.DemoToken,
		Status:    domain.BotActive,
		Owner:     owner,
		CreatedAt: now,
	}
	if err := s.store.SaveBot(ctx, bot); err != nil {
		return domain.Bot{}, err
	}
	for _, patch := range demoUsers {
		if _, err := s.store.UpsertUser(ctx, bot.ID, patch); err != nil {
			return domain.Bot{}, err
		}
	}

	events := demoEvents(seededRand(seed), now)
	if _, err := s.store.AppendEvents(ctx, bot.ID, events); err != nil {
		return domain.Bot{}, err
	}
	s.logger.Info("demo bot seeded", "bot_id", bot.ID, "events", len(events))
	return bot, nil
}

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func demoEvents(r *rand.Rand, now time.Time) []domain.Event {
	var events []domain.Event
	for day := 0; day < DemoDays; day++ {
		date := now.AddDate(0, 0, -day)
		for _, u := range demoUsers {
			n := r.IntN(5) + 1
			for range n {
				at := time.Date(date.Year(), date.Month(), date.Day(), r.IntN(24), r.IntN(60), 0, 0, time.UTC)
				if at.After(now) {
					at = now
				}
				action := demoActions[r.IntN(len(demoActions))]
				ev := domain.Event{UserID: u.ID, Action: action, Timestamp: at}
				if strings.HasPrefix(action, "/") {
					ev.Type = domain.EventCommand
					ev.Data.Command = &domain.CommandData{Text: action, ChatID: u.ID}
				} else {
					ev.Type = domain.EventMessage
					ev.Data.Message = &domain.MessageData{Text: action, ChatID: u.ID}
				}
				events = append(events, ev)
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events
}
