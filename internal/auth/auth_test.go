package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botpanel/internal/apperror"
	"botpanel/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newService(t *testing.T) (*Service, *clock, *repo.MemoryBlobStore) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)}
	blobs := repo.NewMemory()
	s, err := New(blobs, Config{Secret: "test-secret", TTL: time.Hour},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(clk.Now), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return s, clk, blobs
}

func TestEnsureAdminAndLogin(t *testing.T) {
	s, _, blobs := newService(t)
	ctx := context.Background()

	require.ErrorIs(t, s.EnsureAdmin(ctx, "admin", ""), ErrNoPassword)
	require.NoError(t, s.EnsureAdmin(ctx, "admin", "s3cret-pass"))

	raw, ok, err := blobs.Get(ctx, adminsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "s3cret-pass")

	_, err = s.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := s.Login(ctx, "Admin", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
	assert.Equal(t, time.Date(2024, 5, 6, 13, 0, 0, 0, time.UTC), sess.ExpiresAt)

	user, err := s.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

func TestEnsureAdminRotatesPassword(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureAdmin(ctx, "admin", "first-pass"))
	require.NoError(t, s.EnsureAdmin(ctx, "admin", "second-pass"))

	_, err := s.Login(ctx, "admin", "first-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "admin", "second-pass")
	require.NoError(t, err)

	require.NoError(t, s.EnsureAdmin(ctx, "admin", ""), "existing account needs no password")
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	s, clk, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureAdmin(ctx, "admin", "s3cret-pass"))
	sess, err := s.Login(ctx, "admin", "s3cret-pass")
	require.NoError(t, err)

	_, err = s.Verify(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = s.Verify(ctx, forged)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(ctx, none)
	require.ErrorIs(t, err, ErrInvalidToken)

	clk.t = clk.t.Add(2 * time.Hour)
	_, err = s.Verify(ctx, sess.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateAdminWithExpiry(t *testing.T) {
	s, clk, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureAdmin(ctx, "admin", "s3cret-pass"))

	expires := clk.t.Add(30 * time.Minute)
	_, err := s.CreateAdmin(ctx, "admin", "guest", "short", &expires)
	require.ErrorIs(t, err, ErrWeakPassword)

	guest, err := s.CreateAdmin(ctx, "admin", "guest", "guest-pass", &expires)
	require.NoError(t, err)
	assert.False(t, guest.Unlimited)

	_, err = s.CreateAdmin(ctx, "admin", "GUEST", "guest-pass", nil)
	require.ErrorIs(t, err, ErrAccountExists)
	_, err = s.CreateAdmin(ctx, "guest", "third", "third-pass", nil)
	require.ErrorIs(t, err, ErrNotPermitted)

	sess, err := s.Login(ctx, "guest", "guest-pass")
	require.NoError(t, err)
	assert.Equal(t, expires, sess.ExpiresAt, "session never outlives the account")

	clk.t = expires
	_, err = s.Login(ctx, "guest", "guest-pass")
	require.ErrorIs(t, err, ErrAccountExpired)
}

func TestMiddleware(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureAdmin(ctx, "admin", "s3cret-pass"))
	sess, err := s.Login(ctx, "admin", "s3cret-pass")
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UsernameFrom(c))
	}, s.Middleware())

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "missing", status: http.StatusUnauthorized, body: "unauthorized"},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized, body: "invalid_token"},
		{name: "wrong scheme", header: "Basic " + sess.Token, status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + sess.Token, status: http.StatusOK, body: "admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestRandomSecretWhenUnset(t *testing.T) {
	s, err := New(repo.NewMemory(), Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Len(t, s.secret, 32)
	assert.Equal(t, DefaultTTL, s.ttl)
}
