// Package broadcast delivers one text message to the filtered users of one
// or more bots, sequentially and paced.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/metrics"
	"botpanel/internal/store"
	"botpanel/internal/telegram"

	"golang.org/x/time/rate"
)

// DefaultDelay is the pause between two sends.
const DefaultDelay = 100 * time.Millisecond

// DisplayErrorCap bounds how many failures callers show by default.
const DisplayErrorCap = 10

// BotSource resolves bots and their users.
type BotSource interface {
	GetBot(ctx context.Context, id string) (domain.Bot, error)
	ListUsers(ctx context.Context, botID string) ([]domain.User, error)
}

// Sender delivers a text message.
type Sender interface {
	SendText(ctx context.Context, token string, chatID int64, text string) (telegram.SentMessage, error)
}

// DeliveryError records one failed send.
type DeliveryError struct {
	Bot   string `json:"bot"`
	User  string `json:"user"`
	Error string `json:"error"`
}

// Progress is the running tally of a broadcast.
type Progress struct {
	Sent   int             `json:"sent"`
	Failed int             `json:"failed"`
	Total  int             `json:"total"`
	Errors []DeliveryError `json:"errors,omitempty"`
}

// Result is the final tally. Sent + Failed equals Total unless the run was cancelled.
type Result = Progress

// TopErrors returns at most n errors and how many were left out.
func (p Progress) TopErrors(n int) ([]DeliveryError, int) {
	if n < 0 || len(p.Errors) <= n {
		return p.Errors, 0
	}
	return p.Errors[:n], len(p.Errors) - n
}

// Done reports whether every recipient has been attempted.
func (p Progress) Done() bool {
	return p.Sent+p.Failed >= p.Total
}

type target struct {
	bot   domain.Bot
	users []domain.User
}

// Engine plans and dispatches broadcasts.
type Engine struct {
	source  BotSource
	sender  Sender
	delay   time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine builds an Engine. A zero delay sends without pacing.
func NewEngine(source BotSource, sender Sender, delay time.Duration, metricRegistry *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		source:  source,
		sender:  sender,
		delay:   delay,
		metrics: metricRegistry,
		logger:  logger.With("component", "broadcast"),
	}
}

// plan resolves the request to bots and recipients from one snapshot. Unknown
// bots and bots without a credential contribute nothing.
func (e *Engine) plan(ctx context.Context, req Request) ([]target, int, error) {
	var (
		targets []target
		total   int
	)
	for _, id := range req.BotIDs {
		bot, err := e.source.GetBot(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrBotNotFound) {
				continue
			}
			return nil, 0, err
		}
		if bot.Token == "" {
			continue
		}
		users, err := e.source.ListUsers(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		recipients := Recipients(users, req.Filters)
		if len(recipients) == 0 {
			continue
		}
		targets = append(targets, target{bot: bot, users: recipients})
		total += len(recipients)
	}
	return targets, total, nil
}

// Estimate returns how many users Run would attempt for req.
func (e *Engine) Estimate(ctx context.Context, req Request) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	_, total, err := e.plan(ctx, req)
	return total, err
}

// Run validates req, resolves recipients and sends to each in turn. progress,
// when non-nil, is called once before the first send and after every attempt.
// Individual failures are recorded and never stop the run; cancelling ctx does,
// between recipients.
func (e *Engine) Run(ctx context.Context, req Request, progress func(Progress)) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	targets, total, err := e.plan(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("resolve recipients: %w", err)
	}
	if total == 0 {
		return Result{}, ErrNoRecipients
	}

	res := Result{Total: total}
	report := func() {
		if progress != nil {
			snapshot := res
			snapshot.Errors = append([]DeliveryError(nil), res.Errors...)
			progress(snapshot)
		}
	}
	report()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if e.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.delay), 1)
	}

	e.logger.Info("broadcast started", "bots", len(targets), "recipients", total)
	for _, t := range targets {
		for _, u := range t.users {
			if err := limiter.Wait(ctx); err != nil {
				e.logger.Warn("broadcast cancelled", "sent", res.Sent, "failed", res.Failed, "total", total)
				return res, err
			}
			if _, err := e.sender.SendText(ctx, t.bot.Token, u.ID, req.Message); err != nil {
				res.Failed++
				res.Errors = append(res.Errors, DeliveryError{
					Bot:   t.bot.Name,
					User:  u.DisplayName(),
					Error: telegram.Describe(err),
				})
				e.count("failed")
			} else {
				res.Sent++
				e.count("sent")
			}
			report()
		}
	}
	e.logger.Info("broadcast finished", "sent", res.Sent, "failed", res.Failed, "total", total)
	return res, nil
}

func (e *Engine) count(status string) {
	if e.metrics != nil {
		e.metrics.BroadcastMessages.WithLabelValues(status).Inc()
	}
}
