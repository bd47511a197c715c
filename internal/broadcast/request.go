package broadcast

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the platform's limit for a text message.
const MaxMessageLength = 4096

var (
	// ErrNoRecipients is returned when the request resolves to nobody.
	ErrNoRecipients = errors.New("broadcast has no recipients")
)

// Request describes one broadcast.
type Request struct {
	BotIDs  []string `json:"botIds"`
	Message string   `json:"message"`
	Filters Filters  `json:"filters"`
}

// FieldError names an invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a Request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid broadcast: " + strings.Join(parts, "; ")
}

// Validate checks the request before any recipient is resolved.
func (r Request) Validate() error {
	var fields []FieldError
	if strings.TrimSpace(r.Message) == "" {
		fields = append(fields, FieldError{Field: "message", Message: "must not be empty"})
	} else if n := utf8.RuneCountInString(r.Message); n > MaxMessageLength {
		fields = append(fields, FieldError{Field: "message", Message: fmt.Sprintf("must be at most %d characters, got %d", MaxMessageLength, n)})
	}
	if len(r.BotIDs) == 0 {
		fields = append(fields, FieldError{Field: "botIds", Message: "select at least one bot"})
	}
	switch r.Filters.Premium {
	case "", PremiumYes, PremiumNo:
	default:
		fields = append(fields, FieldError{Field: "filters.premium", Message: `must be "", "yes" or "no"`})
	}
	switch r.Filters.Blocked {
	case "", BlockedExcludeBotBlocked:
	default:
		fields = append(fields, FieldError{Field: "filters.blocked", Message: `must be "" or "not_blocked"`})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
