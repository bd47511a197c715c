package httpserver

import (
	"net/http"
	"time"

	"botpanel/internal/apperror"
	"botpanel/internal/auth"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperror.ErrInvalidLogin
	}
	sess, err := s.deps.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

type createAdminRequest struct {
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (s *Server) handleCreateAdmin(c echo.Context) error {
	var req createAdminRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Username == "" {
		return apperror.ErrValidation.WithMessage("username is required")
	}
	admin, err := s.deps.Auth.CreateAdmin(c.Request().Context(), auth.UsernameFrom(c), req.Username, req.Password, req.ExpiresAt)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, admin)
}
