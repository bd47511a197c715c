// Package httpserver exposes the dashboard API over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"botpanel/internal/analytics"
	"botpanel/internal/apperror"
	"botpanel/internal/auth"
	"botpanel/internal/bots"
	"botpanel/internal/broadcast"
	"botpanel/internal/ingest"
	"botpanel/internal/metrics"
	"botpanel/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures addressing and the webhook endpoint.
type Options struct {
	Addr          string
	BasePath      string
	PublicBaseURL string
	WebhookSecret string
}

// Dependencies are the services handlers call into.
type Dependencies struct {
	Auth       *auth.Service
	Bots       *bots.Service
	Store      *store.Store
	Analytics  *analytics.Aggregator
	Broadcast  *broadcast.Engine
	Broadcasts *broadcast.Jobs
	Ingestor   *ingest.Ingestor
}

// Server wraps an http.Server with the API routes.
type Server struct {
	httpServer *http.Server
	echo       *echo.Echo
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	opts       Options
}

// New creates a server listening on opts.Addr with health, metrics and API routes.
func New(opts Options, deps Dependencies, logger *slog.Logger, metricRegistry *metrics.Metrics) *Server {
	opts.BasePath = normaliseBasePath(opts.BasePath)
	s := &Server{
		logger:  logger.With("component", "http"),
		metrics: metricRegistry,
		deps:    deps,
		opts:    opts,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(s.logger)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.RequestID(),
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/healthz") || strings.HasSuffix(c.Request().URL.Path, "/metrics")
			},
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogError:     true,
			LogMethod:    true,
			LogRequestID: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				attrs := []any{
					"method", v.Method,
					"uri", loggedURI(v.URI),
					"status", v.Status,
					"latency", v.Latency,
					"request_id", v.RequestID,
				}
				if v.Error != nil {
					s.logger.Warn("request failed", append(attrs, "error", v.Error)...)
				} else {
					s.logger.Info("request", attrs...)
				}
				return nil
			},
		}),
		middleware.RecoverWithConfig(middleware.RecoverConfig{
			LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
				s.logger.Error("panic recovered", "error", err, "stack", string(stack))
				s.metrics.IncError("http_panic")
				return err
			},
		}),
	)
	s.echo = e
	s.routes()

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if opts.BasePath != "" {
		s.logger.Info("http server configured with base path", "base_path", opts.BasePath)
	}
	return s
}

func (s *Server) routes() {
	root := s.echo.Group(s.opts.BasePath)
	root.GET("/healthz", healthHandler)
	root.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := root.Group("/api")
	api.POST("/auth/login", s.handleLogin)
	api.POST("/webhook/:botId", s.handleWebhook)

	p := api.Group("", s.deps.Auth.Middleware())
	p.POST("/admins", s.handleCreateAdmin)

	p.GET("/bots", s.handleListBots)
	p.POST("/bots", s.handleAddBot)
	p.POST("/bots/demo", s.handleSeedDemo)
	p.GET("/bots/:botId", s.handleGetBot)
	p.PATCH("/bots/:botId", s.handleUpdateBot)
	p.DELETE("/bots/:botId", s.handleDeleteBot)
	p.POST("/bots/:botId/sync", s.handleSyncBot)
	p.GET("/bots/:botId/webhook", s.handleWebhookInfo)
	p.POST("/bots/:botId/webhook", s.handleEnableWebhook)
	p.DELETE("/bots/:botId/webhook", s.handleDisableWebhook)

	p.GET("/bots/:botId/stats", s.handleStats)
	p.GET("/bots/:botId/reports/actions", s.handleActionsReport)
	p.GET("/bots/:botId/reports/utm", s.handleUTMReport)
	p.GET("/bots/:botId/reports/bounce", s.handleBounceReport)
	p.GET("/bots/:botId/reports/sessions", s.handleSessionsReport)
	p.GET("/bots/:botId/events", s.handleEvents)
	p.DELETE("/bots/:botId/events/:eventId", s.handleDeleteEvent)

	p.GET("/users", s.handleListUsers)
	p.GET("/languages", s.handleLanguages)
	p.PATCH("/bots/:botId/users/:userId", s.handleUpdateUser)
	p.POST("/bots/:botId/users/:userId/check-block", s.handleCheckBlocked)
	p.GET("/bots/:botId/users/:userId/dialog", s.handleDialog)
	p.POST("/bots/:botId/users/:userId/messages", s.handleSendMessage)
	p.DELETE("/bots/:botId/users/:userId/events", s.handleDeleteUserEvents)

	p.POST("/broadcasts/estimate", s.handleEstimateBroadcast)
	p.POST("/broadcasts", s.handleStartBroadcast)
	p.GET("/broadcasts/:jobId", s.handleGetBroadcast)
	p.DELETE("/broadcasts/:jobId", s.handleCancelBroadcast)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.echo.StartServer(s.httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// loggedURI drops the query from webhook URIs, which carry the shared secret.
func loggedURI(uri string) string {
	if strings.Contains(uri, "/webhook/") {
		uri, _, _ = strings.Cut(uri, "?")
	}
	return uri
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
