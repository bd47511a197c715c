package analytics

import (
	"context"
	"sort"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/store"
)

// Dialog sides.
const (
	FromUser  = "user"
	FromAdmin = domain.SentFromAdmin
)

// DialogMessage is one line of the conversation between a user and the bot.
type DialogMessage struct {
	EventID   string           `json:"eventId"`
	UpdateID  *int64           `json:"updateId,omitempty"`
	Type      domain.EventType `json:"type"`
	From      string           `json:"from"`
	Text      string           `json:"text"`
	ChatID    int64            `json:"chatId,omitempty"`
	MessageID int64            `json:"messageId,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Dialog returns the user's conversation with the bot, oldest first.
func (a *Aggregator) Dialog(ctx context.Context, botID string, userID int64) ([]DialogMessage, error) {
	events, err := a.source.QueryEvents(ctx, botID, store.EventFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	out := make([]DialogMessage, 0, len(events))
	for _, ev := range events {
		chatID, messageID := ev.Data.Chat()
		from := FromUser
		if ev.Type == domain.EventMessageSent {
			from = FromAdmin
		}
		out = append(out, DialogMessage{
			EventID:   ev.ID,
			UpdateID:  ev.UpdateID,
			Type:      ev.Type,
			From:      from,
			Text:      ev.Data.Text(),
			ChatID:    chatID,
			MessageID: messageID,
			Timestamp: ev.Timestamp,
		})
	}
	return out, nil
}
