package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Token  string
	Method string
	Form   url.Values
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	respond func(call apiCall) (int, string)
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	// Path shape: /bot<token>/<method>
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/bot"), "/", 2)
	_ = r.ParseForm()
	call := apiCall{Token: parts[0], Method: parts[1], Form: r.PostForm}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	status, body := f.respond(call)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

func newTestClient(t *testing.T, respond func(call apiCall) (int, string)) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(srv.Close)
	client := New(Config{Endpoint: srv.URL + "/bot%s/%s", Timeout: 5 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	return client, api
}

func ok(result string) (int, string) {
	return http.StatusOK, `{"ok":true,"result":` + result + `}`
}

func fail(code int, description string) (int, string) {
	return code, fmt.Sprintf(`{"ok":false,"error_code":%d,"description":%q}`, code, description)
}

func TestGetUpdatesDecodesPremiumFlag(t *testing.T) {
	client, api := newTestClient(t, func(call apiCall) (int, string) {
		return ok(`[{"update_id":11,"message":{"message_id":3,"from":{"id":7,"first_name":"Ann","language_code":"en","is_premium":true},"chat":{"id":7,"type":"private"},"date":1700000000,"text":"/start promo"}}]`)
	})

	updates, err := client.GetUpdates(context.Background(), "123:abc", 10, 100)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(11), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.True(t, updates[0].Message.From.IsPremium)
	assert.Equal(t, "/start promo", updates[0].Message.Text)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "123:abc", api.calls[0].Token)
	assert.Equal(t, "getUpdates", api.calls[0].Method)
	assert.Equal(t, "10", api.calls[0].Form.Get("offset"))
	assert.Equal(t, "100", api.calls[0].Form.Get("limit"))
}

func TestSendText(t *testing.T) {
	client, api := newTestClient(t, func(call apiCall) (int, string) {
		return ok(`{"message_id":55,"chat":{"id":9,"type":"private"},"date":1700000000,"text":"hello"}`)
	})

	sent, err := client.SendText(context.Background(), "123:abc", 9, "hello")
	require.NoError(t, err)
	assert.Equal(t, SentMessage{MessageID: 55, ChatID: 9}, sent)
	assert.Equal(t, "hello", api.calls[0].Form.Get("text"))
	assert.Equal(t, "9", api.calls[0].Form.Get("chat_id"))
}

func TestSendTextForbidden(t *testing.T) {
	client, _ := newTestClient(t, func(call apiCall) (int, string) {
		return fail(http.StatusForbidden, "Forbidden: bot was blocked by the user")
	})

	_, err := client.SendText(context.Background(), "123:abc", 9, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Forbidden: bot was blocked by the user", Describe(err))
}

func TestGetMeUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(call apiCall) (int, string) {
		return fail(http.StatusUnauthorized, "Unauthorized")
	})

	_, err := client.GetMe(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetMe(t *testing.T) {
	client, _ := newTestClient(t, func(call apiCall) (int, string) {
		return ok(`{"id":42,"is_bot":true,"first_name":"Shop","username":"shop_bot"}`)
	})

	info, err := client.GetMe(context.Background(), "123:abc")
	require.NoError(t, err)
	assert.Equal(t, BotInfo{ID: 42, FirstName: "Shop", Username: "shop_bot"}, info)
}

func TestProbeBlocked(t *testing.T) {
	t.Run("blocked", func(t *testing.T) {
		client, api := newTestClient(t, func(call apiCall) (int, string) {
			return fail(http.StatusForbidden, "Forbidden: bot was blocked by the user")
		})
		blocked, err := client.ProbeBlocked(context.Background(), "123:abc", 9)
		require.NoError(t, err)
		assert.True(t, blocked)
		assert.Equal(t, []string{"sendMessage"}, api.methods())
	})

	t.Run("reachable", func(t *testing.T) {
		client, api := newTestClient(t, func(call apiCall) (int, string) {
			if call.Method == "deleteMessage" {
				return ok(`true`)
			}
			return ok(`{"message_id":77,"chat":{"id":9},"date":1700000000,"text":"."}`)
		})
		blocked, err := client.ProbeBlocked(context.Background(), "123:abc", 9)
		require.NoError(t, err)
		assert.False(t, blocked)
		assert.Equal(t, []string{"sendMessage", "deleteMessage"}, api.methods())
		assert.Equal(t, ProbeText, api.calls[0].Form.Get("text"))
		assert.Equal(t, "77", api.calls[1].Form.Get("message_id"))
	})

	t.Run("other failure", func(t *testing.T) {
		client, _ := newTestClient(t, func(call apiCall) (int, string) {
			return fail(http.StatusBadRequest, "Bad Request: chat not found")
		})
		_, err := client.ProbeBlocked(context.Background(), "123:abc", 9)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrForbidden)
	})
}

func TestDemoTokenNeverCallsPlatform(t *testing.T) {
	client, api := newTestClient(t, func(call apiCall) (int, string) {
		return fail(http.StatusInternalServerError, "should not be called")
	})
	ctx := context.Background()

	updates, err := client.GetUpdates(ctx, "demo_token", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, updates)

	sent, err := client.SendText(ctx, "", 5, "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(5), sent.ChatID)
	assert.NotZero(t, sent.MessageID)

	require.NoError(t, client.DeleteMessage(ctx, "demo_token", 5, 1))

	_, err = client.ProbeBlocked(ctx, "demo_token", 5)
	assert.ErrorIs(t, err, ErrDemoToken)

	assert.Empty(t, api.methods())
}

func TestRequestHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, func(call apiCall) (int, string) {
		return ok(`[]`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUpdates(ctx, "123:abc", 0, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetWebhook(t *testing.T) {
	client, api := newTestClient(t, func(call apiCall) (int, string) {
		return ok(`true`)
	})

	require.NoError(t, client.SetWebhook(context.Background(), "123:abc", "https://panel.example.com/api/webhook/b1?secret=s"))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "setWebhook", api.calls[0].Method)
	assert.Equal(t, "https://panel.example.com/api/webhook/b1?secret=s", api.calls[0].Form.Get("url"))
}

func TestTransportErrorsOmitToken(t *testing.T) {
	const token = "123456:SECRET-TOKEN"
	client := New(Config{Endpoint: "http://127.0.0.1:1/bot%s/%s", Timeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	_, err := client.GetUpdates(context.Background(), token, 0, 100)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.NotContains(t, Describe(err), token)
	assert.Contains(t, err.Error(), "telegram getUpdates")

	_, err = client.SendText(context.Background(), token, 7, "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
}

func TestClassifyRedactsTokenInText(t *testing.T) {
	err := classify("getMe", "42:abc", fmt.Errorf("bad request to /bot42:abc/getMe"))
	assert.Equal(t, "telegram getMe: bad request to /bot<token>/getMe", err.Error())
}
