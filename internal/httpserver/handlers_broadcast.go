package httpserver

import (
	"net/http"

	"botpanel/internal/apperror"
	"botpanel/internal/auth"
	"botpanel/internal/broadcast"

	"github.com/labstack/echo/v4"
)

// bindBroadcast decodes and validates a broadcast request and checks that the
// caller owns every selected bot.
func (s *Server) bindBroadcast(c echo.Context) (broadcast.Request, error) {
	var req broadcast.Request
	if err := c.Bind(&req); err != nil {
		return req, apperror.NewBadRequest("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return req, mapError(err)
	}
	owner := auth.UsernameFrom(c)
	for _, id := range req.BotIDs {
		if _, err := s.deps.Bots.GetBot(c.Request().Context(), owner, id); err != nil {
			return req, mapError(err)
		}
	}
	return req, nil
}

func (s *Server) handleEstimateBroadcast(c echo.Context) error {
	req, err := s.bindBroadcast(c)
	if err != nil {
		return err
	}
	n, err := s.deps.Broadcast.Estimate(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"recipients": n})
}

func (s *Server) handleStartBroadcast(c echo.Context) error {
	req, err := s.bindBroadcast(c)
	if err != nil {
		return err
	}
	job, err := s.deps.Broadcasts.Start(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	s.logger.Info("broadcast started", "job_id", job.ID, "bots", len(req.BotIDs), "recipients", job.Progress.Total, "by", auth.UsernameFrom(c))
	return c.JSON(http.StatusAccepted, jobResponse(job))
}

type broadcastJob struct {
	broadcast.Job
	SuppressedErrors int `json:"suppressedErrors,omitempty"`
}

// jobResponse caps the error list for display.
func jobResponse(job broadcast.Job) broadcastJob {
	var suppressed int
	job.Progress.Errors, suppressed = job.Progress.TopErrors(broadcast.DisplayErrorCap)
	return broadcastJob{Job: job, SuppressedErrors: suppressed}
}

func (s *Server) handleGetBroadcast(c echo.Context) error {
	job, err := s.deps.Broadcasts.Get(c.Param("jobId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, jobResponse(job))
}

func (s *Server) handleCancelBroadcast(c echo.Context) error {
	if err := s.deps.Broadcasts.Cancel(c.Param("jobId")); err != nil {
		return mapError(err)
	}
	job, err := s.deps.Broadcasts.Get(c.Param("jobId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, jobResponse(job))
}
