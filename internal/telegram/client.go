package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"botpanel/internal/domain"
	"botpanel/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ProbeText is the message sent to detect whether a user blocked the bot.
const ProbeText = "."

// Client talks to the Telegram Bot API on behalf of any registered bot.
// Tokens are passed per call; demo tokens never leave the process.
type Client struct {
	logger   *slog.Logger
	endpoint string
	http     *http.Client
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Config holds Telegram client configuration.
type Config struct {
	// Endpoint is a format string taking the token and the method name.
	Endpoint string
	Timeout  time.Duration
}

// New creates a new Telegram client.
func New(cfg Config, logger *slog.Logger, metricRegistry *metrics.Metrics) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		logger:   logger.With("component", "telegram"),
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		metrics:  metricRegistry,
		now:      time.Now,
	}
}

// ctxDoer binds the library's context-free requests to ctx and records metrics.
type ctxDoer struct {
	ctx     context.Context
	http    *http.Client
	metrics *metrics.Metrics
}

func (d ctxDoer) Do(req *http.Request) (*http.Response, error) {
	method := path.Base(req.URL.Path)
	start := time.Now()
	res, err := d.http.Do(req.WithContext(d.ctx))
	if d.metrics != nil {
		status := "error"
		if err == nil {
			status = strconv.Itoa(res.StatusCode)
		}
		d.metrics.TelegramRequests.WithLabelValues(method, status).Inc()
		d.metrics.TelegramLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
	return res, err
}

func (c *Client) api(ctx context.Context, token string) *tgbotapi.BotAPI {
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: ctxDoer{ctx: ctx, http: c.http, metrics: c.metrics},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(c.endpoint)
	return bot
}

// GetMe returns the identity behind token.
func (c *Client) GetMe(ctx context.Context, token string) (BotInfo, error) {
	if domain.IsDemoToken(token) {
		return BotInfo{FirstName: "Demo Bot", Username: "demo_bot"}, nil
	}
	me, err := c.api(ctx, token).GetMe()
	if err != nil {
		return BotInfo{}, classify("getMe", token, err)
	}
	return BotInfo{ID: me.ID, FirstName: me.FirstName, Username: me.UserName}, nil
}

// GetUpdates fetches up to limit pending updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, token string, offset int64, limit int) ([]Update, error) {
	if domain.IsDemoToken(token) {
		return nil, nil
	}
	params := tgbotapi.Params{
		"offset":  strconv.FormatInt(offset, 10),
		"limit":   strconv.Itoa(limit),
		"timeout": "0",
	}
	resp, err := c.api(ctx, token).MakeRequest("getUpdates", params)
	if err != nil {
		return nil, classify("getUpdates", token, err)
	}
	var updates []Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

// SendText delivers text to chatID. Demo bots get a locally generated message id.
func (c *Client) SendText(ctx context.Context, token string, chatID int64, text string) (SentMessage, error) {
	if domain.IsDemoToken(token) {
		return SentMessage{MessageID: c.now().UnixMilli(), ChatID: chatID}, nil
	}
	msg, err := c.api(ctx, token).Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return SentMessage{}, classify("sendMessage", token, err)
	}
	sent := SentMessage{MessageID: int64(msg.MessageID), ChatID: chatID}
	if msg.Chat != nil {
		sent.ChatID = msg.Chat.ID
	}
	return sent, nil
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, token string, chatID, messageID int64) error {
	if domain.IsDemoToken(token) {
		return nil
	}
	if _, err := c.api(ctx, token).Request(tgbotapi.NewDeleteMessage(chatID, int(messageID))); err != nil {
		return classify("deleteMessage", token, err)
	}
	return nil
}

// ProbeBlocked sends a throwaway message to detect whether chatID blocked the
// bot. A delivered probe is deleted again on a best-effort basis.
func (c *Client) ProbeBlocked(ctx context.Context, token string, chatID int64) (bool, error) {
	if domain.IsDemoToken(token) {
		return false, ErrDemoToken
	}
	sent, err := c.SendText(ctx, token, chatID, ProbeText)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return true, nil
		}
		return false, err
	}
	if err := c.DeleteMessage(ctx, token, sent.ChatID, sent.MessageID); err != nil {
		c.logger.Warn("failed deleting probe message", "chat_id", chatID, "error", err)
	}
	return false, nil
}

// SetWebhook points the bot's updates at url.
func (c *Client) SetWebhook(ctx context.Context, token, url string) error {
	if domain.IsDemoToken(token) {
		return ErrDemoToken
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := c.api(ctx, token).Request(wh); err != nil {
		return classify("setWebhook", token, err)
	}
	return nil
}

// DeleteWebhook switches the bot back to getUpdates polling.
func (c *Client) DeleteWebhook(ctx context.Context, token string) error {
	if domain.IsDemoToken(token) {
		return nil
	}
	if _, err := c.api(ctx, token).Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return classify("deleteWebhook", token, err)
	}
	return nil
}

// WebhookInfo reports the bot's current webhook registration.
func (c *Client) WebhookInfo(ctx context.Context, token string) (WebhookStatus, error) {
	if domain.IsDemoToken(token) {
		return WebhookStatus{}, nil
	}
	info, err := c.api(ctx, token).GetWebhookInfo()
	if err != nil {
		return WebhookStatus{}, classify("getWebhookInfo", token, err)
	}
	return WebhookStatus{
		URL:                info.URL,
		PendingUpdateCount: info.PendingUpdateCount,
		LastErrorMessage:   info.LastErrorMessage,
	}, nil
}
