package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONIsFlat(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ev := Event{
		ID:        "e1",
		UpdateID:  Int64Ptr(42),
		UserID:    7,
		Type:      EventCallback,
		Action:    "buy",
		Data:      EventData{Callback: &CallbackData{Data: "buy", ChatID: 7, MessageID: 9}},
		Timestamp: ts,
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, map[string]any{"callbackData": "buy", "chatId": 7.0, "messageId": 9.0}, generic["data"])
	assert.Equal(t, 42.0, generic["updateId"])

	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NotNil(t, back.Data.Callback)
	assert.Equal(t, "buy", back.Data.Callback.Data)
	assert.True(t, back.Timestamp.Equal(ts))
}

func TestEventWithoutUpdateIDOmitsField(t *testing.T) {
	ev := Event{ID: "e2", UserID: 1, Type: EventMessageSent, Action: "message_sent",
		Data: EventData{Sent: &SentData{Text: "hi", ChatID: 1, MessageID: 3, From: SentFromAdmin}}}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "updateId")

	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.False(t, back.HasUpdateID())
	require.NotNil(t, back.Data.Sent)
	assert.Equal(t, SentFromAdmin, back.Data.Sent.From)
	assert.Equal(t, "hi", back.Data.Text())
}

func TestDecodeLegacyEvent(t *testing.T) {
	raw := `{"id":"x","userId":5,"type":"command","action":"/start","data":{"text":"/start","chatId":5,"messageId":1},"timestamp":"2024-01-01T00:00:00Z"}`
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	require.NotNil(t, ev.Data.Command)
	chatID, msgID := ev.Data.Chat()
	assert.Equal(t, int64(5), chatID)
	assert.Equal(t, int64(1), msgID)
}
