package broadcast

import (
	"strings"

	"botpanel/internal/domain"
)

// Filter values.
const (
	PremiumYes = "yes"
	PremiumNo  = "no"

	BlockedExcludeBotBlocked = "not_blocked"
)

// DefaultLanguage is assumed for users whose client reported no language.
const DefaultLanguage = "ru"

// Filters narrow the recipients of a broadcast. Zero values match everyone
// not blocked by an operator.
type Filters struct {
	// Premium is "", "yes" or "no".
	Premium string `json:"premium"`
	// Languages, when non-empty, lists the accepted language codes.
	Languages []string `json:"languages"`
	// Blocked set to "not_blocked" also skips users who blocked the bot.
	Blocked string `json:"blocked"`
}

// Match reports whether u should receive the broadcast.
func (f Filters) Match(u domain.User) bool {
	if u.Blocked {
		return false
	}
	switch f.Premium {
	case PremiumYes:
		if !u.IsPremium {
			return false
		}
	case PremiumNo:
		if u.IsPremium {
			return false
		}
	}
	if len(f.Languages) > 0 {
		lang := u.LanguageCode
		if lang == "" {
			lang = DefaultLanguage
		}
		if !containsFold(f.Languages, lang) {
			return false
		}
	}
	if f.Blocked == BlockedExcludeBotBlocked && u.BotBlocked {
		return false
	}
	return true
}

// Recipients returns the users matching f, preserving order.
func Recipients(users []domain.User, f Filters) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
