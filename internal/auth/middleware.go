package auth

import (
	"errors"
	"strings"

	"botpanel/internal/apperror"

	"github.com/labstack/echo/v4"
)

const usernameKey = "auth_username"

// Middleware rejects requests without a valid bearer token and stores the
// account name on the echo context.
func (s *Service) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return apperror.ErrUnauthorized
			}
			username, err := s.Verify(c.Request().Context(), token)
			switch {
			case errors.Is(err, ErrAccountExpired):
				return apperror.ErrAccountExpired
			case errors.Is(err, ErrInvalidToken):
				return apperror.ErrInvalidToken.WithInternal(err)
			case err != nil:
				return apperror.ErrInternal.WithInternal(err)
			}
			c.Set(usernameKey, username)
			return next(c)
		}
	}
}

// UsernameFrom returns the authenticated account name, or "".
func UsernameFrom(c echo.Context) string {
	username, _ := c.Get(usernameKey).(string)
	return username
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
