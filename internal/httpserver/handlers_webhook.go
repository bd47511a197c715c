package httpserver

import (
	"crypto/subtle"
	"net/http"

	"botpanel/internal/apperror"
	"botpanel/internal/auth"
	"botpanel/internal/bots"
	"botpanel/internal/telegram"

	"github.com/labstack/echo/v4"
)

// SecretHeader carries the webhook secret set through setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

func (s *Server) webhookAuthorized(c echo.Context) bool {
	if s.opts.WebhookSecret == "" {
		return true
	}
	got := c.Request().Header.Get(SecretHeader)
	if got == "" {
		got = c.QueryParam("secret")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.WebhookSecret)) == 1
}

func (s *Server) handleWebhook(c echo.Context) error {
	if !s.webhookAuthorized(c) {
		return apperror.ErrUnauthorized.WithMessage("invalid webhook secret")
	}
	ctx := c.Request().Context()
	botID := c.Param("botId")
	if _, err := s.deps.Store.GetBot(ctx, botID); err != nil {
		return mapError(err)
	}
	var update telegram.Update
	if err := c.Bind(&update); err != nil {
		return apperror.NewBadRequest("invalid update")
	}
	if _, err := s.deps.Ingestor.HandleUpdate(ctx, botID, update); err != nil {
		s.metrics.IncError("webhook")
		return mapError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleWebhookInfo(c echo.Context) error {
	info, err := s.deps.Bots.Webhook(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleEnableWebhook(c echo.Context) error {
	if s.opts.PublicBaseURL == "" {
		return apperror.ErrValidation.WithMessage("PUBLIC_BASE_URL is not configured")
	}
	botID := c.Param("botId")
	target := bots.WebhookURL(s.opts.PublicBaseURL, s.opts.BasePath+"/api", botID, s.opts.WebhookSecret)
	if err := s.deps.Bots.EnableWebhook(c.Request().Context(), auth.UsernameFrom(c), botID, target); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": target})
}

func (s *Server) handleDisableWebhook(c echo.Context) error {
	if err := s.deps.Bots.DisableWebhook(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
