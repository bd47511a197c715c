package bots

import (
	"time"

	"botpanel/internal/domain"
)

// BotView is the API shape of a bot. The token never leaves the server.
type BotView struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Username       string        `json:"username,omitempty"`
	Status         string        `json:"status"`
	Owner          string        `json:"owner"`
	CreatedAt      time.Time     `json:"createdAt"`
	Demo           bool          `json:"demo"`
	TokenHint      string        `json:"tokenHint,omitempty"`
	Stats          *domain.Stats `json:"stats,omitempty"`
	StatsUpdatedAt *time.Time    `json:"statsUpdatedAt,omitempty"`
}

// NewBotView builds the API shape of bot.
func NewBotView(bot domain.Bot, stats *domain.Stats, statsAt *time.Time) BotView {
	return BotView{
		ID:             bot.ID,
		Name:           bot.Name,
		Username:       bot.Username,
		Status:         bot.Status,
		Owner:          bot.Owner,
		CreatedAt:      bot.CreatedAt,
		Demo:           bot.IsDemo(),
		TokenHint:      maskToken(bot.Token),
		Stats:          stats,
		StatsUpdatedAt: statsAt,
	}
}

// maskToken keeps the numeric bot id and the last four characters.
func maskToken(token string) string {
	if token == "" || token == domain.DemoToken {
		return token
	}
	if len(token) <= 8 {
		return "****"
	}
	prefix := ""
	for i, r := range token {
		if r == ':' {
			prefix = token[:i+1]
			break
		}
	}
	return prefix + "****" + token[len(token)-4:]
}

// UserView is a user listed across bots.
type UserView struct {
	domain.User
	BotID   string `json:"botId"`
	BotName string `json:"botName"`
}
