// Package ingest turns platform updates into stored users and events, either
// by polling (Syncer) or by webhook push (Ingestor).
package ingest

import (
	"strings"

	"botpanel/internal/domain"
	"botpanel/internal/telegram"
)

// Actions recorded for non-command events.
const (
	ActionMessage     = "message"
	ActionButtonClick = "button_click"
)

// Normalize maps one update to the user profile it carries and the event it
// represents. Either result may be nil. When an update carries both a
// callback and a message, the callback wins. The event's UpdateID is left
// for the caller to set.
func Normalize(update telegram.Update) (*domain.UserPatch, *domain.Event) {
	var (
		user *domain.UserPatch
		ev   *domain.Event
	)

	if msg := update.Message; msg != nil && msg.From != nil {
		user = patchFromUser(*msg.From)
		if msg.Text != "" {
			ev = messageEvent(*msg)
			if ev.Type == domain.EventCommand {
				applyStartPayload(user, msg.Text)
			}
		}
	}

	if cb := update.CallbackQuery; cb != nil {
		user = patchFromUser(cb.From)
		ev = callbackEvent(*cb)
	}

	return user, ev
}

func patchFromUser(u telegram.User) *domain.UserPatch {
	return &domain.UserPatch{
		ID:           u.ID,
		FirstName:    domain.StringPtr(u.FirstName),
		LastName:     domain.StringPtr(u.LastName),
		Username:     domain.StringPtr(u.Username),
		LanguageCode: domain.StringPtr(u.LanguageCode),
		IsPremium:    domain.BoolPtr(u.IsPremium),
	}
}

func messageEvent(msg telegram.Message) *domain.Event {
	ev := &domain.Event{
		UserID: msg.From.ID,
		Type:   domain.EventMessage,
		Action: ActionMessage,
	}
	if strings.HasPrefix(msg.Text, "/") {
		ev.Type = domain.EventCommand
		ev.Action = firstToken(msg.Text)
		ev.Data.Command = &domain.CommandData{Text: msg.Text, ChatID: msg.Chat.ID, MessageID: msg.MessageID}
		return ev
	}
	ev.Data.Message = &domain.MessageData{Text: msg.Text, ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	return ev
}

func callbackEvent(cb telegram.CallbackQuery) *domain.Event {
	action := cb.Data
	if action == "" {
		action = ActionButtonClick
	}
	data := &domain.CallbackData{Data: cb.Data}
	if cb.Message != nil {
		data.ChatID = cb.Message.Chat.ID
		data.MessageID = cb.Message.MessageID
	}
	return &domain.Event{
		UserID: cb.From.ID,
		Type:   domain.EventCallback,
		Action: action,
		Data:   domain.EventData{Callback: data},
	}
}

func firstToken(text string) string {
	if i := strings.IndexByte(text, ' '); i >= 0 {
		return text[:i]
	}
	return text
}

// applyStartPayload reads first-touch attribution from a deep link
// "/start <source>__<campaign>". Deep-link payloads are limited to
// [A-Za-z0-9_-], hence the double underscore separator.
func applyStartPayload(user *domain.UserPatch, text string) {
	if user == nil || firstToken(text) != "/start" {
		return
	}
	payload := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
	if payload == "" || strings.ContainsAny(payload, " \t") {
		return
	}
	source, campaign, _ := strings.Cut(payload, "__")
	if source == "" {
		return
	}
	user.UTMSource = domain.StringPtr(source)
	if campaign != "" {
		user.UTMCampaign = domain.StringPtr(campaign)
	}
}
