package httpserver

import (
	"net/http"

	"botpanel/internal/analytics"
	"botpanel/internal/apperror"
	"botpanel/internal/auth"
	"botpanel/internal/bots"
	"botpanel/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleListUsers(c echo.Context) error {
	f := bots.UserFilter{
		BotID:   c.QueryParam("bot"),
		Gender:  c.QueryParam("gender"),
		Premium: c.QueryParam("premium"),
		Blocked: c.QueryParam("blocked"),
		Search:  c.QueryParam("search"),
	}
	var err error
	if f.DateFrom, err = timeQuery(c, "dateFrom"); err != nil {
		return err
	}
	if f.DateTo, err = timeQuery(c, "dateTo"); err != nil {
		return err
	}
	users, err := s.deps.Bots.ListAllUsers(c.Request().Context(), auth.UsernameFrom(c), f)
	if err != nil {
		return mapError(err)
	}
	if users == nil {
		users = []bots.UserView{}
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) handleLanguages(c echo.Context) error {
	langs, err := s.deps.Bots.Languages(c.Request().Context(), auth.UsernameFrom(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, langs)
}

type updateUserRequest struct {
	Blocked *bool   `json:"blocked"`
	Gender  *string `json:"gender"`
}

func (s *Server) handleUpdateUser(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Blocked == nil && req.Gender == nil {
		return apperror.ErrValidation.WithMessage("nothing to update")
	}

	ctx := c.Request().Context()
	owner, botID := auth.UsernameFrom(c), c.Param("botId")
	var user domain.User
	if req.Gender != nil {
		if user, err = s.deps.Bots.SetUserGender(ctx, owner, botID, userID, *req.Gender); err != nil {
			return mapError(err)
		}
	}
	if req.Blocked != nil {
		if user, err = s.deps.Bots.SetUserBlocked(ctx, owner, botID, userID, *req.Blocked); err != nil {
			return mapError(err)
		}
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleCheckBlocked(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	user, err := s.deps.Bots.CheckBlocked(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleDialog(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	messages, err := s.deps.Analytics.Dialog(c.Request().Context(), bot.ID, userID)
	if err != nil {
		return mapError(err)
	}
	if messages == nil {
		messages = []analytics.DialogMessage{}
	}
	return c.JSON(http.StatusOK, messages)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSendMessage(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	ev, err := s.deps.Bots.SendDirect(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"), userID, req.Text)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, ev)
}

func (s *Server) handleDeleteUserEvents(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	n, err := s.deps.Bots.DeleteUserEvents(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}
