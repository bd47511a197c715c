package apperror

import (
	"fmt"
	"net/http"
)

// Error represents an application error with HTTP status and error code.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// WithInternal returns a copy of the error with an internal error attached.
func (e *Error) WithInternal(err error) *Error {
	cp := *e
	cp.Internal = err
	return &cp
}

// WithMessage returns a copy of the error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// WithDetails returns a copy of the error with details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new application error.
func New(status int, code, message string) *Error {
	return &Error{HTTPStatus: status, Code: code, Message: message}
}

var (
	ErrUnauthorized   = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrInvalidToken   = New(http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
	ErrInvalidLogin   = New(http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
	ErrAccountExpired = New(http.StatusForbidden, "account_expired", "Account access has expired")
	ErrForbidden      = New(http.StatusForbidden, "forbidden", "Access denied")

	ErrNotFound    = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrBotNotFound = New(http.StatusNotFound, "bot_not_found", "Bot not found")
	ErrConflict    = New(http.StatusConflict, "conflict", "Resource already exists")
	ErrBusy        = New(http.StatusConflict, "busy", "Operation already in progress")

	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	ErrUpstream = New(http.StatusBadGateway, "upstream_error", "Messaging platform request failed")
	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
)

// NewBadRequest creates a bad request error with a custom message.
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID.
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal creates an internal error with a message and wrapped cause.
func NewInternal(message string, err error) *Error {
	return ErrInternal.WithMessage(message).WithInternal(err)
}
