package bots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/store"
	"botpanel/internal/telegram"
)

// UserFilter narrows ListAllUsers. Empty fields match everything.
type UserFilter struct {
	BotID   string
	Gender  string
	Premium string // "yes" | "no"
	Blocked string // "blocked" | "not_blocked"
	// DateFrom and DateTo bound the last activity, whole days inclusive.
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
}

func (f UserFilter) match(u domain.User) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		name := u.FirstName
		if name == "" {
			name = u.Username
		}
		if !strings.Contains(strings.ToLower(name), q) && !strings.Contains(strings.ToLower(u.Username), q) {
			return false
		}
	}
	if f.Gender != "" && u.Gender != f.Gender {
		return false
	}
	switch f.Premium {
	case "yes":
		if !u.IsPremium {
			return false
		}
	case "no":
		if u.IsPremium {
			return false
		}
	}
	switch f.Blocked {
	case "blocked":
		if !u.Blocked {
			return false
		}
	case "not_blocked":
		if u.Blocked {
			return false
		}
	}
	activity := u.LastSeen
	if activity.IsZero() {
		activity = u.FirstSeen
	}
	if !activity.IsZero() {
		if f.DateFrom != nil {
			from := time.Date(f.DateFrom.Year(), f.DateFrom.Month(), f.DateFrom.Day(), 0, 0, 0, 0, f.DateFrom.Location())
			if activity.Before(from) {
				return false
			}
		}
		if f.DateTo != nil {
			to := time.Date(f.DateTo.Year(), f.DateTo.Month(), f.DateTo.Day(), 0, 0, 0, 0, f.DateTo.Location()).AddDate(0, 0, 1)
			if !activity.Before(to) {
				return false
			}
		}
	}
	return true
}

// ListAllUsers returns users across the owner's bots that match f.
func (s *Service) ListAllUsers(ctx context.Context, owner string, f UserFilter) ([]UserView, error) {
	all, err := s.store.ListBots(ctx)
	if err != nil {
		return nil, err
	}
	var out []UserView
	for _, bot := range all {
		if bot.Owner != owner || (f.BotID != "" && bot.ID != f.BotID) {
			continue
		}
		users, err := s.store.ListUsers(ctx, bot.ID)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if f.match(u) {
				out = append(out, UserView{User: u, BotID: bot.ID, BotName: bot.Name})
			}
		}
	}
	return out, nil
}

// Languages returns the distinct language codes of the owner's users, sorted.
func (s *Service) Languages(ctx context.Context, owner string) ([]string, error) {
	users, err := s.ListAllUsers(ctx, owner, UserFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, u := range users {
		if u.LanguageCode != "" {
			seen[u.LanguageCode] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out, nil
}

// SetUserBlocked toggles the operator block flag.
func (s *Service) SetUserBlocked(ctx context.Context, owner, botID string, userID int64, blocked bool) (domain.User, error) {
	if _, err := s.GetBot(ctx, owner, botID); err != nil {
		return domain.User{}, err
	}
	return s.store.UpdateUser(ctx, botID, userID, func(u *domain.User) { u.Blocked = blocked })
}

// SetUserGender records the operator-assigned gender. Empty clears it.
func (s *Service) SetUserGender(ctx context.Context, owner, botID string, userID int64, gender string) (domain.User, error) {
	if gender != "" && gender != domain.GenderMale && gender != domain.GenderFemale {
		return domain.User{}, ErrInvalidGender
	}
	if _, err := s.GetBot(ctx, owner, botID); err != nil {
		return domain.User{}, err
	}
	return s.store.UpdateUser(ctx, botID, userID, func(u *domain.User) { u.Gender = gender })
}

// CheckBlocked probes whether the user blocked the bot and stores the answer.
func (s *Service) CheckBlocked(ctx context.Context, owner, botID string, userID int64) (domain.User, error) {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.store.GetUser(ctx, botID, userID); err != nil {
		return domain.User{}, err
	}
	blocked, err := s.platform.ProbeBlocked(ctx, bot.Token, userID)
	if err != nil {
		return domain.User{}, err
	}
	return s.store.UpdateUser(ctx, botID, userID, func(u *domain.User) { u.BotBlocked = blocked })
}

// SendDirect delivers an operator message to one user and records it as a
// message_sent event without an update id.
func (s *Service) SendDirect(ctx context.Context, owner, botID string, userID int64, text string) (domain.Event, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Event{}, ErrEmptyMessage
	}
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return domain.Event{}, err
	}
	if bot.Token == "" {
		return domain.Event{}, ErrNoToken
	}
	if _, err := s.store.GetUser(ctx, botID, userID); err != nil {
		return domain.Event{}, err
	}

	sent, err := s.platform.SendText(ctx, bot.Token, userID, text)
	if err != nil {
		if errors.Is(err, telegram.ErrForbidden) {
			if _, uerr := s.store.UpdateUser(ctx, botID, userID, func(u *domain.User) { u.BotBlocked = true }); uerr != nil {
				s.logger.Warn("failed flagging blocked user", "bot_id", botID, "user_id", userID, "error", uerr)
			}
		}
		return domain.Event{}, fmt.Errorf("send message: %w", err)
	}

	return s.store.AppendEvent(ctx, botID, domain.Event{
		UserID: userID,
		Type:   domain.EventMessageSent,
		Action: string(domain.EventMessageSent),
		Data: domain.EventData{Sent: &domain.SentData{
			Text:      text,
			ChatID:    sent.ChatID,
			MessageID: sent.MessageID,
			From:      domain.SentFromAdmin,
		}},
	})
}

// DeleteDialogMessage removes an event from the dialog. For operator messages
// the platform copy is deleted too, best effort.
func (s *Service) DeleteDialogMessage(ctx context.Context, owner, botID, eventID string) (domain.Event, error) {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return domain.Event{}, err
	}
	ev, err := s.store.GetEvent(ctx, botID, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if sent := ev.Data.Sent; sent != nil && sent.From == domain.SentFromAdmin && sent.MessageID != 0 {
		if err := s.platform.DeleteMessage(ctx, bot.Token, sent.ChatID, sent.MessageID); err != nil {
			s.logger.Warn("failed deleting platform message", "bot_id", botID, "event_id", eventID, "error", err)
		}
	}
	return s.store.DeleteEvent(ctx, botID, eventID)
}

// DeleteUserEvents clears a user's history for an owned bot.
func (s *Service) DeleteUserEvents(ctx context.Context, owner, botID string, userID int64) (int, error) {
	if _, err := s.GetBot(ctx, owner, botID); err != nil {
		return 0, err
	}
	return s.store.DeleteUserEvents(ctx, botID, userID)
}

// IsNotFound reports whether err is one of the store's not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrBotNotFound) || errors.Is(err, store.ErrUserNotFound) || errors.Is(err, store.ErrEventNotFound)
}
