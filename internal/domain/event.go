package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType classifies a recorded interaction.
type EventType string

const (
	EventMessage     EventType = "message"
	EventMessageSent EventType = "message_sent"
	EventCommand     EventType = "command"
	EventCallback    EventType = "callback"
)

// SentFromAdmin marks outbound messages written by an operator.
const SentFromAdmin = "admin"

// Event is one recorded interaction between a user and a bot.
//
// UpdateID is set only for events that came from the platform; locally
// authored events (operator messages) carry none and are never deduplicated.
type Event struct {
	ID        string    `json:"id"`
	UpdateID  *int64    `json:"updateId,omitempty"`
	UserID    int64     `json:"userId"`
	Type      EventType `json:"type"`
	Action    string    `json:"action"`
	Data      EventData `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// EventData is the type-specific payload of an Event. Exactly one field is
// set and it must agree with Event.Type.
type EventData struct {
	Message  *MessageData
	Command  *CommandData
	Callback *CallbackData
	Sent     *SentData
}

// MessageData is the payload of a plain inbound text message.
type MessageData struct {
	Text      string
	ChatID    int64
	MessageID int64
}

// CommandData is the payload of an inbound "/..." message.
type CommandData struct {
	Text      string
	ChatID    int64
	MessageID int64
}

// CallbackData is the payload of an inline button press.
type CallbackData struct {
	Data      string
	ChatID    int64
	MessageID int64
}

// SentData is the payload of an operator message delivered to a user.
type SentData struct {
	Text      string
	ChatID    int64
	MessageID int64
	From      string
}

// flatData is the storage shape of EventData. Stored blobs and API clients
// see a single flat object regardless of the variant.
type flatData struct {
	Text         string `json:"text,omitempty"`
	ChatID       int64  `json:"chatId,omitempty"`
	MessageID    int64  `json:"messageId,omitempty"`
	CallbackData string `json:"callbackData,omitempty"`
	From         string `json:"from,omitempty"`
}

// Text returns the human-readable text carried by the payload, if any.
func (d EventData) Text() string {
	switch {
	case d.Message != nil:
		return d.Message.Text
	case d.Command != nil:
		return d.Command.Text
	case d.Sent != nil:
		return d.Sent.Text
	case d.Callback != nil:
		return d.Callback.Data
	}
	return ""
}

// Chat returns the chat and platform message identifiers of the payload.
func (d EventData) Chat() (chatID, messageID int64) {
	switch {
	case d.Message != nil:
		return d.Message.ChatID, d.Message.MessageID
	case d.Command != nil:
		return d.Command.ChatID, d.Command.MessageID
	case d.Sent != nil:
		return d.Sent.ChatID, d.Sent.MessageID
	case d.Callback != nil:
		return d.Callback.ChatID, d.Callback.MessageID
	}
	return 0, 0
}

func (d EventData) flat() flatData {
	switch {
	case d.Message != nil:
		return flatData{Text: d.Message.Text, ChatID: d.Message.ChatID, MessageID: d.Message.MessageID}
	case d.Command != nil:
		return flatData{Text: d.Command.Text, ChatID: d.Command.ChatID, MessageID: d.Command.MessageID}
	case d.Callback != nil:
		return flatData{CallbackData: d.Callback.Data, ChatID: d.Callback.ChatID, MessageID: d.Callback.MessageID}
	case d.Sent != nil:
		return flatData{Text: d.Sent.Text, ChatID: d.Sent.ChatID, MessageID: d.Sent.MessageID, From: d.Sent.From}
	}
	return flatData{}
}

func dataFromFlat(t EventType, f flatData) EventData {
	switch t {
	case EventCommand:
		return EventData{Command: &CommandData{Text: f.Text, ChatID: f.ChatID, MessageID: f.MessageID}}
	case EventCallback:
		return EventData{Callback: &CallbackData{Data: f.CallbackData, ChatID: f.ChatID, MessageID: f.MessageID}}
	case EventMessageSent:
		return EventData{Sent: &SentData{Text: f.Text, ChatID: f.ChatID, MessageID: f.MessageID, From: f.From}}
	default:
		return EventData{Message: &MessageData{Text: f.Text, ChatID: f.ChatID, MessageID: f.MessageID}}
	}
}

type eventJSON struct {
	ID        string    `json:"id"`
	UpdateID  *int64    `json:"updateId,omitempty"`
	UserID    int64     `json:"userId"`
	Type      EventType `json:"type"`
	Action    string    `json:"action"`
	Data      flatData  `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON writes the event with its payload flattened under "data".
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:        e.ID,
		UpdateID:  e.UpdateID,
		UserID:    e.UserID,
		Type:      e.Type,
		Action:    e.Action,
		Data:      e.Data.flat(),
		Timestamp: e.Timestamp,
	})
}

// UnmarshalJSON decodes the flat payload into the variant selected by "type".
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	*e = Event{
		ID:        raw.ID,
		UpdateID:  raw.UpdateID,
		UserID:    raw.UserID,
		Type:      raw.Type,
		Action:    raw.Action,
		Data:      dataFromFlat(raw.Type, raw.Data),
		Timestamp: raw.Timestamp,
	}
	return nil
}

// HasUpdateID reports whether the event originated from a platform update.
func (e Event) HasUpdateID() bool {
	return e.UpdateID != nil
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
