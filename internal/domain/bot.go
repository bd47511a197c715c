package domain

import "time"

// Bot statuses.
const (
	BotActive   = "active"
	BotInactive = "inactive"
)

// DemoToken marks a bot that never talks to the platform.
const DemoToken = "demo_token"

// Bot is a registered bot managed by an operator.
type Bot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Token     string    `json:"token"`
	Status    string    `json:"status"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsDemo reports whether the bot has no real platform credential.
func (b Bot) IsDemo() bool {
	return IsDemoToken(b.Token)
}

// IsDemoToken reports whether token is the demo marker or empty.
func IsDemoToken(token string) bool {
	return token == "" || token == DemoToken
}

// Stats summarizes a bot's audience. Never persisted.
type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	DAU           int `json:"dau"`
	WAU           int `json:"wau"`
	MAU           int `json:"mau"`
	TotalEvents   int `json:"totalEvents"`
	TotalSessions int `json:"totalSessions"`
}

// Session is a run of one user's events with no gap above the session timeout.
type Session struct {
	UserID    int64     `json:"userId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Events    []Event   `json:"events"`
}

// Duration is the span between the first and last event of the session.
func (s Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
