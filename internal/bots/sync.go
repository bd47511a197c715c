package bots

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"botpanel/internal/domain"
	"botpanel/internal/ingest"
	"botpanel/internal/telegram"
)

// SyncBot pulls pending updates for an owned bot and refreshes its stats.
func (s *Service) SyncBot(ctx context.Context, owner, botID string) (ingest.Result, error) {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return ingest.Result{}, err
	}
	res, err := s.syncer.Sync(ctx, bot.ID, bot.Token)
	if err != nil {
		return res, err
	}
	if _, err := s.refresh(ctx, bot.ID); err != nil {
		s.logger.Warn("stats refresh after sync failed", "bot_id", bot.ID, "error", err)
	}
	return res, nil
}

// SyncAll syncs every active bot with a real token, one at a time. A bot
// already being synced elsewhere is skipped.
func (s *Service) SyncAll(ctx context.Context) error {
	all, err := s.store.ListBots(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, bot := range all {
		if bot.Status != domain.BotActive || bot.IsDemo() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.syncer.Sync(ctx, bot.ID, bot.Token)
		switch {
		case ingest.IsBusy(err):
			s.logger.Debug("sync skipped, already running", "bot_id", bot.ID)
		case err != nil:
			errs = append(errs, fmt.Errorf("bot %s: %w", bot.ID, err))
		case res.Processed > 0:
			s.logger.Info("bot synced", "bot_id", bot.ID, "processed", res.Processed, "total", res.Total)
		}
	}
	return errors.Join(errs...)
}

// RefreshStats recomputes stats for every bot into the cache.
func (s *Service) RefreshStats(ctx context.Context) error {
	all, err := s.store.ListBots(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, bot := range all {
		if _, err := s.refresh(ctx, bot.ID); err != nil {
			errs = append(errs, fmt.Errorf("bot %s: %w", bot.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) refresh(ctx context.Context, botID string) (domain.Stats, error) {
	stats, err := s.agg.ComputeStats(ctx, botID)
	if err != nil {
		return domain.Stats{}, err
	}
	s.stats.Set(botID, stats, s.now().UTC())
	if s.metrics != nil {
		s.metrics.BotActiveUsers.WithLabelValues(botID, "day").Set(float64(stats.DAU))
		s.metrics.BotActiveUsers.WithLabelValues(botID, "week").Set(float64(stats.WAU))
		s.metrics.BotActiveUsers.WithLabelValues(botID, "month").Set(float64(stats.MAU))
	}
	return stats, nil
}

// WebhookURL is where the platform delivers updates for botID.
func WebhookURL(baseURL, basePath, botID, secret string) string {
	u := strings.TrimRight(baseURL, "/") + strings.TrimRight(basePath, "/") + "/webhook/" + url.PathEscape(botID)
	if secret != "" {
		u += "?secret=" + url.QueryEscape(secret)
	}
	return u
}

// EnableWebhook registers target as the bot's webhook.
func (s *Service) EnableWebhook(ctx context.Context, owner, botID, target string) error {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return err
	}
	return s.platform.SetWebhook(ctx, bot.Token, target)
}

// DisableWebhook returns the bot to polling.
func (s *Service) DisableWebhook(ctx context.Context, owner, botID string) error {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return err
	}
	return s.platform.DeleteWebhook(ctx, bot.Token)
}

// Webhook reports the bot's current webhook registration.
func (s *Service) Webhook(ctx context.Context, owner, botID string) (telegram.WebhookStatus, error) {
	bot, err := s.GetBot(ctx, owner, botID)
	if err != nil {
		return telegram.WebhookStatus{}, err
	}
	return s.platform.WebhookInfo(ctx, bot.Token)
}
