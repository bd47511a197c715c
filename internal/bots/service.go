// Package bots manages the bot registry and the operator actions performed
// on a bot's users.
package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"botpanel/internal/analytics"
	"botpanel/internal/domain"
	"botpanel/internal/ingest"
	"botpanel/internal/metrics"
	"botpanel/internal/store"
	"botpanel/internal/telegram"

	"github.com/google/uuid"
)

var (
	ErrInvalidBot    = errors.New("invalid bot")
	ErrInvalidGender = errors.New("gender must be empty, male or female")
	ErrEmptyMessage  = errors.New("message text is empty")
	ErrNoToken       = errors.New("bot has no token")
)

// Platform is the messaging platform as seen by operator actions.
type Platform interface {
	GetMe(ctx context.Context, token string) (telegram.BotInfo, error)
	SendText(ctx context.Context, token string, chatID int64, text string) (telegram.SentMessage, error)
	DeleteMessage(ctx context.Context, token string, chatID, messageID int64) error
	ProbeBlocked(ctx context.Context, token string, chatID int64) (bool, error)
	SetWebhook(ctx context.Context, token, url string) error
	DeleteWebhook(ctx context.Context, token string) error
	WebhookInfo(ctx context.Context, token string) (telegram.WebhookStatus, error)
}

// Syncer pulls pending updates for one bot.
type Syncer interface {
	Sync(ctx context.Context, botID, token string) (ingest.Result, error)
}

// Service implements bot registry and user operations scoped by owner.
type Service struct {
	store    *store.Store
	agg      *analytics.Aggregator
	stats    *analytics.StatsCache
	platform Platform
	syncer   Syncer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now          func() time.Time
	newID        func() string
	verifyTokens bool
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides bot id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithTokenVerification makes AddBot and UpdateBot call getMe for new tokens.
func WithTokenVerification(enabled bool) Option {
	return func(s *Service) { s.verifyTokens = enabled }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a Service.
func New(st *store.Store, agg *analytics.Aggregator, stats *analytics.StatsCache, platform Platform, syncer Syncer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		agg:      agg,
		stats:    stats,
		platform: platform,
		syncer:   syncer,
		logger:   logger.With("component", "bots"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BotInput carries the editable fields of a bot.
type BotInput struct {
	Name   *string `json:"name"`
	Token  *string `json:"token"`
	Status *string `json:"status"`
}

// GetBot returns the bot if owner owns it.
func (s *Service) GetBot(ctx context.Context, owner, botID string) (domain.Bot, error) {
	bot, err := s.store.GetBot(ctx, botID)
	if err != nil {
		return domain.Bot{}, err
	}
	if bot.Owner != owner {
		return domain.Bot{}, store.ErrBotNotFound
	}
	return bot, nil
}

// ListBots returns the owner's bots with stats attached.
func (s *Service) ListBots(ctx context.Context, owner string) ([]BotView, error) {
	all, err := s.store.ListBots(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]BotView, 0, len(all))
	for _, b := range all {
		if b.Owner != owner {
			continue
		}
		view, err := s.View(ctx, b)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// View renders bot with its latest stats, computing them on a cache miss.
func (s *Service) View(ctx context.Context, bot domain.Bot) (BotView, error) {
	stats, at, ok := s.stats.Get(bot.ID)
	if !ok {
		var err error
		stats, err = s.agg.ComputeStats(ctx, bot.ID)
		if err != nil {
			return BotView{}, err
		}
		at = s.now().UTC()
		s.stats.Set(bot.ID, stats, at)
	}
	return NewBotView(bot, &stats, &at), nil
}

// AddBot registers a bot for owner.
func (s *Service) AddBot(ctx context.Context, owner string, in BotInput) (domain.Bot, error) {
	name, token := deref(in.Name), deref(in.Token)
	if name == "" {
		return domain.Bot{}, fmt.Errorf("%w: name is required", ErrInvalidBot)
	}
	if token == "" {
		return domain.Bot{}, fmt.Errorf("%w: token is required", ErrInvalidBot)
	}
	status := domain.BotActive
	if in.Status != nil {
		if err := validateStatus(*in.Status); err != nil {
			return domain.Bot{}, err
		}
		status = *in.Status
	}

	bot := domain.Bot{
		ID:        s.newID(),
		Name:      name,
		Token:     token,
		Status:    status,
		Owner:     owner,
		CreatedAt: s.now().UTC(),
	}
	if err := s.verify(ctx, &bot); err != nil {
		return domain.Bot{}, err
	}
	if err := s.store.SaveBot(ctx, bot); err != nil {
		return domain.Bot{}, err
	}
	s.logger.Info("bot added", "bot_id", bot.ID, "owner", owner, "demo", bot.IsDemo())
	return bot, nil
}

// UpdateBot changes name, token or status of an owned bot.
func (s *Service) UpdateBot(ctx context.Context, owner, botID string, in BotInput) (domain.Bot, error) {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return domain.Bot{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Bot{}, fmt.Errorf("%w: name is required", ErrInvalidBot)
		}
		bot.Name = name
	}
	if in.Status != nil {
		if err := validateStatus(*in.Status); err != nil {
			return domain.Bot{}, err
		}
		bot.Status = *in.Status
	}
	if in.Token != nil {
		token := strings.TrimSpace(*in.Token)
		if token == "" {
			return domain.Bot{}, fmt.Errorf("%w: token is required", ErrInvalidBot)
		}
		if token != bot.Token {
			bot.Token = token
			bot.Username = ""
			if err := s.verify(ctx, &bot); err != nil {
				return domain.Bot{}, err
			}
		}
	}
	if err := s.store.SaveBot(ctx, bot); err != nil {
		return domain.Bot{}, err
	}
	return bot, nil
}

// DeleteBot removes an owned bot with all its events, users and cursor.
func (s *Service) DeleteBot(ctx context.Context, owner, botID string) error {
	if _, err := s.GetBot(ctx, owner, botID); err != nil {
		return err
	}
	if err := s.store.RemoveBot(ctx, botID); err != nil {
		return err
	}
	s.stats.Forget(botID)
	s.logger.Info("bot deleted", "bot_id", botID, "owner", owner)
	return nil
}

func (s *Service) verify(ctx context.Context, bot *domain.Bot) error {
	if !s.verifyTokens {
		return nil
	}
	info, err := s.platform.GetMe(ctx, bot.Token)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	bot.Username = info.Username
	return nil
}

func validateStatus(status string) error {
	if status != domain.BotActive && status != domain.BotInactive {
		return fmt.Errorf("%w: status must be %q or %q", ErrInvalidBot, domain.BotActive, domain.BotInactive)
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
