package telegram

// Update is one inbound platform occurrence. Only the parts the dashboard
// records are decoded.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// User is the platform profile attached to messages and callbacks.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// Message is a chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// SentMessage identifies a message the bot delivered.
type SentMessage struct {
	MessageID int64
	ChatID    int64
}

// BotInfo is the identity returned by getMe.
type BotInfo struct {
	ID        int64
	FirstName string
	Username  string
}

// WebhookStatus summarizes getWebhookInfo.
type WebhookStatus struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pendingUpdateCount"`
	LastErrorMessage   string `json:"lastErrorMessage,omitempty"`
}
