package httpserver

import (
	"errors"
	"strconv"
	"time"

	"botpanel/internal/apperror"
	"botpanel/internal/auth"
	"botpanel/internal/bots"
	"botpanel/internal/broadcast"
	"botpanel/internal/ingest"
	"botpanel/internal/store"
	"botpanel/internal/telegram"

	"github.com/labstack/echo/v4"
)

// mapError converts service errors into API errors.
func mapError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	var verr *broadcast.ValidationError
	if errors.As(err, &verr) {
		return apperror.ErrValidation.WithDetails(map[string]any{"fields": verr.Fields}).WithInternal(err)
	}

	switch {
	case errors.Is(err, store.ErrBotNotFound):
		return apperror.ErrBotNotFound
	case errors.Is(err, store.ErrUserNotFound):
		return apperror.ErrNotFound.WithMessage("User not found")
	case errors.Is(err, store.ErrEventNotFound):
		return apperror.ErrNotFound.WithMessage("Event not found")
	case errors.Is(err, broadcast.ErrJobNotFound):
		return apperror.ErrNotFound.WithMessage("Broadcast not found")

	case errors.Is(err, bots.ErrInvalidBot),
		errors.Is(err, bots.ErrInvalidGender),
		errors.Is(err, bots.ErrEmptyMessage),
		errors.Is(err, bots.ErrNoToken),
		errors.Is(err, broadcast.ErrNoRecipients),
		errors.Is(err, auth.ErrWeakPassword):
		return apperror.ErrValidation.WithMessage(err.Error())

	case errors.Is(err, ingest.ErrSyncInProgress):
		return apperror.ErrBusy.WithMessage("Sync already in progress for this bot")

	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperror.ErrInvalidLogin
	case errors.Is(err, auth.ErrAccountExpired):
		return apperror.ErrAccountExpired
	case errors.Is(err, auth.ErrNotPermitted):
		return apperror.ErrForbidden.WithMessage(err.Error())
	case errors.Is(err, auth.ErrAccountExists):
		return apperror.ErrConflict.WithMessage("Account already exists")

	case errors.Is(err, telegram.ErrDemoToken):
		return apperror.NewBadRequest("Not available for the demo bot")
	case errors.Is(err, telegram.ErrUnauthorized):
		return apperror.ErrValidation.WithMessage("Bot token was rejected by Telegram").WithInternal(err)
	}

	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		return apperror.ErrUpstream.WithMessage(telegram.Describe(err)).WithInternal(err)
	}
	return apperror.NewInternal("request failed", err)
}

func userIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return 0, apperror.NewBadRequest("userId must be an integer")
	}
	return id, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperror.NewBadRequest(name + " must be a positive integer")
	}
	return n, nil
}

// timeQuery accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func timeQuery(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperror.NewBadRequest(name + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}
