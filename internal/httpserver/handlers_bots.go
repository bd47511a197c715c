package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"botpanel/internal/analytics"
	"botpanel/internal/apperror"
	"botpanel/internal/auth"
	"botpanel/internal/bots"
	"botpanel/internal/domain"
	"botpanel/internal/store"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleListBots(c echo.Context) error {
	views, err := s.deps.Bots.ListBots(c.Request().Context(), auth.UsernameFrom(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetBot(c echo.Context) error {
	ctx := c.Request().Context()
	bot, err := s.deps.Bots.GetBot(ctx, auth.UsernameFrom(c), c.Param("botId"))
	if err != nil {
		return mapError(err)
	}
	view, err := s.deps.Bots.View(ctx, bot)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, view)
}

type addBotRequest struct {
	bots.BotInput
	// Sync pulls pending updates right after the bot is saved.
	Sync bool `json:"sync"`
}

func (s *Server) handleAddBot(c echo.Context) error {
	var req addBotRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	ctx := c.Request().Context()
	owner := auth.UsernameFrom(c)
	bot, err := s.deps.Bots.AddBot(ctx, owner, req.BotInput)
	if err != nil {
		return mapError(err)
	}
	if req.Sync && !bot.IsDemo() {
		if _, err := s.deps.Bots.SyncBot(ctx, owner, bot.ID); err != nil {
			s.logger.Warn("initial sync failed", "bot_id", bot.ID, "error", err)
		}
	}
	view, err := s.deps.Bots.View(ctx, bot)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, view)
}

type seedDemoRequest struct {
	Seed uint64 `json:"seed"`
}

func (s *Server) handleSeedDemo(c echo.Context) error {
	var req seedDemoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	ctx := c.Request().Context()
	bot, err := s.deps.Bots.SeedDemoBot(ctx, auth.UsernameFrom(c), req.Seed)
	if err != nil {
		return mapError(err)
	}
	view, err := s.deps.Bots.View(ctx, bot)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (s *Server) handleUpdateBot(c echo.Context) error {
	var req bots.BotInput
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	ctx := c.Request().Context()
	bot, err := s.deps.Bots.UpdateBot(ctx, auth.UsernameFrom(c), c.Param("botId"), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, bots.NewBotView(bot, nil, nil))
}

func (s *Server) handleDeleteBot(c echo.Context) error {
	if err := s.deps.Bots.DeleteBot(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSyncBot(c echo.Context) error {
	res, err := s.deps.Bots.SyncBot(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// ownedBot resolves :botId for the calling operator.
func (s *Server) ownedBot(c echo.Context) (domain.Bot, error) {
	bot, err := s.deps.Bots.GetBot(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"))
	if err != nil {
		return domain.Bot{}, mapError(err)
	}
	return bot, nil
}

type statsResponse struct {
	domain.Stats
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (s *Server) handleStats(c echo.Context) error {
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	view, err := s.deps.Bots.View(c.Request().Context(), bot)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, statsResponse{Stats: *view.Stats, UpdatedAt: view.StatsUpdatedAt})
}

func (s *Server) handleActionsReport(c echo.Context) error {
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	days, err := intQuery(c, "days", analytics.DefaultActionsDays)
	if err != nil {
		return err
	}
	report, err := s.deps.Analytics.ActionsReport(c.Request().Context(), bot.ID, days)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleUTMReport(c echo.Context) error {
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	report, err := s.deps.Analytics.UTMReport(c.Request().Context(), bot.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleBounceReport(c echo.Context) error {
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	report, err := s.deps.Analytics.BounceReport(c.Request().Context(), bot.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleSessionsReport(c echo.Context) error {
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	days, err := intQuery(c, "days", analytics.DefaultSessionsDays)
	if err != nil {
		return err
	}
	report, err := s.deps.Analytics.SessionsReport(c.Request().Context(), bot.ID, days)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleEvents(c echo.Context) error {
	bot, err := s.ownedBot(c)
	if err != nil {
		return err
	}
	var f store.EventFilter
	if f.Start, err = timeQuery(c, "start"); err != nil {
		return err
	}
	if f.End, err = timeQuery(c, "end"); err != nil {
		return err
	}
	f.Type = domain.EventType(c.QueryParam("type"))
	if raw := c.QueryParam("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperror.NewBadRequest("userId must be an integer")
		}
		f.UserID = &id
	}
	events, err := s.deps.Store.QueryEvents(c.Request().Context(), bot.ID, f)
	if err != nil {
		return mapError(err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleDeleteEvent(c echo.Context) error {
	ev, err := s.deps.Bots.DeleteDialogMessage(c.Request().Context(), auth.UsernameFrom(c), c.Param("botId"), c.Param("eventId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ev)
}
