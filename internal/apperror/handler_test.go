package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error, method string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	HTTPErrorHandler(slog.Default())(err, e.NewContext(req, rec))
	if rec.Body.Len() == 0 {
		return rec, nil
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body["error"].(map[string]any)
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]any{"message": "required"})
	rec, obj := render(t, err, http.MethodPost)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", obj["code"])
	assert.Equal(t, map[string]any{"message": "required"}, obj["details"])
}

func TestHTTPErrorHandler_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewNotFound("bot", "b1"))
	rec, obj := render(t, err, http.MethodGet)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "bot 'b1' not found", obj["message"])
}

func TestHTTPErrorHandler_EchoError(t *testing.T) {
	rec, obj := render(t, echo.NewHTTPError(http.StatusUnauthorized, "missing token"), http.MethodGet)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", obj["code"])
	assert.Equal(t, "missing token", obj["message"])
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	rec, obj := render(t, errors.New("boom"), http.MethodGet)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", obj["code"])
	assert.Equal(t, "An internal error occurred", obj["message"])
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	rec, obj := render(t, ErrNotFound, http.MethodHead)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, obj)
}

func TestErrorCopiesDoNotMutateBase(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := ErrInternal.WithInternal(cause).WithMessage("save failed")

	assert.Nil(t, ErrInternal.Internal)
	assert.Equal(t, "An internal error occurred", ErrInternal.Message)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "internal_error: save failed (disk full)", wrapped.Error())
}
