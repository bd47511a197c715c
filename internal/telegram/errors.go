package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrForbidden means the user blocked the bot or the chat is unreachable.
	ErrForbidden = errors.New("telegram: forbidden")
	// ErrUnauthorized means the bot token was rejected.
	ErrUnauthorized = errors.New("telegram: invalid bot token")
	// ErrDemoToken is returned by operations that cannot be simulated for demo bots.
	ErrDemoToken = errors.New("telegram: operation unavailable for demo bot")
)

// APIError is a non-ok Bot API response.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %s (code=%d)", e.Method, e.Description, e.Code)
}

// Is maps platform status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrForbidden:
		return e.Code == http.StatusForbidden
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusNotFound
	}
	return false
}

// Describe returns the platform's own description for API errors and the
// plain error text otherwise.
func Describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Description != "" {
		return apiErr.Description
	}
	return err.Error()
}

// classify maps library errors onto APIError and strips the bot token from
// transport failures, whose text otherwise carries the full request URL.
func classify(method, token string, err error) error {
	if err == nil {
		return nil
	}
	var ptrErr *tgbotapi.Error
	if errors.As(err, &ptrErr) {
		return &APIError{Method: method, Code: ptrErr.Code, Description: ptrErr.Message, RetryAfter: ptrErr.RetryAfter}
	}
	var valErr tgbotapi.Error
	if errors.As(err, &valErr) {
		return &APIError{Method: method, Code: valErr.Code, Description: valErr.Message, RetryAfter: valErr.RetryAfter}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if token != "" && strings.Contains(err.Error(), token) {
		return fmt.Errorf("telegram %s: %s", method, strings.ReplaceAll(err.Error(), token, redactedToken))
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}

const redactedToken = "<token>"
