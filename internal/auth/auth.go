// Package auth holds operator accounts and issues the bearer tokens that
// guard the API.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"botpanel/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminsKey = "admins"
	issuer    = "botpanel"

	// MinPasswordLength applies to accounts created through the API.
	MinPasswordLength = 8
	// DefaultTTL is the session lifetime when none is configured.
	DefaultTTL = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountExpired     = errors.New("account expired")
	ErrAccountExists      = errors.New("account already exists")
	ErrNotPermitted       = errors.New("only the main admin can manage accounts")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoPassword         = errors.New("admin password is not configured")
)

// Admin is an operator account as shown to callers.
type Admin struct {
	Username  string     `json:"username"`
	Unlimited bool       `json:"unlimited"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type account struct {
	Admin
	PasswordHash string `json:"passwordHash"`
}

func (a account) expired(now time.Time) bool {
	return !a.Unlimited && a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

// Config controls token signing.
type Config struct {
	Secret string
	TTL    time.Duration
}

// Service manages accounts stored in a blob store.
type Service struct {
	blobs  repo.BlobStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// New returns a Service. An empty secret is replaced with a random one, which
// invalidates sessions on every restart.
func New(blobs repo.BlobStore, cfg Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		blobs:  blobs,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: logger.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		s.logger.Warn("JWT_SECRET is empty, using a random secret; sessions will not survive restarts")
	}
	return s, nil
}

func (s *Service) load(ctx context.Context) ([]account, error) {
	raw, ok, err := s.blobs.Get(ctx, adminsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var accounts []account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode admins: %w", err)
	}
	return accounts, nil
}

func (s *Service) save(ctx context.Context, accounts []account) error {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("encode admins: %w", err)
	}
	return s.blobs.Set(ctx, adminsKey, raw)
}

func find(accounts []account, username string) int {
	for i, a := range accounts {
		if strings.EqualFold(a.Username, username) {
			return i
		}
	}
	return -1
}

// EnsureAdmin creates or refreshes the main admin from configuration. An
// existing account keeps its hash unless the password changed.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := find(accounts, username)
	if i >= 0 {
		acc := &accounts[i]
		changed := !acc.Unlimited
		acc.Unlimited = true
		acc.ExpiresAt = nil
		if password != "" && bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
			if acc.PasswordHash, err = s.hash(password); err != nil {
				return err
			}
			changed = true
		}
		if !changed {
			return nil
		}
		return s.save(ctx, accounts)
	}

	if password == "" {
		return ErrNoPassword
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	accounts = append(accounts, account{
		Admin:        Admin{Username: username, Unlimited: true, CreatedAt: s.now().UTC()},
		PasswordHash: hash,
	})
	if err := s.save(ctx, accounts); err != nil {
		return err
	}
	s.logger.Info("main admin created", "username", username)
	return nil
}

// CreateAdmin adds a time-limited account. Only unlimited accounts may do so.
func (s *Service) CreateAdmin(ctx context.Context, actor, username, password string, expiresAt *time.Time) (Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Admin{}, ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return Admin{}, ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load(ctx)
	if err != nil {
		return Admin{}, err
	}
	if i := find(accounts, actor); i < 0 || !accounts[i].Unlimited {
		return Admin{}, ErrNotPermitted
	}
	if find(accounts, username) >= 0 {
		return Admin{}, ErrAccountExists
	}
	hash, err := s.hash(password)
	if err != nil {
		return Admin{}, err
	}
	acc := account{
		Admin:        Admin{Username: username, ExpiresAt: expiresAt, CreatedAt: s.now().UTC()},
		PasswordHash: hash,
	}
	if err := s.save(ctx, append(accounts, acc)); err != nil {
		return Admin{}, err
	}
	s.logger.Info("admin created", "username", username, "by", actor)
	return acc.Admin, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	accounts, err := s.load(ctx)
	if err != nil {
		return Session{}, err
	}
	i := find(accounts, username)
	if i < 0 {
		return Session{}, ErrInvalidCredentials
	}
	acc := accounts[i]
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	now := s.now()
	if acc.expired(now) {
		return Session{}, ErrAccountExpired
	}

	expires := now.Add(s.ttl)
	if acc.ExpiresAt != nil && acc.ExpiresAt.Before(expires) {
		expires = *acc.ExpiresAt
	}
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   acc.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: signed, ExpiresAt: expires.UTC(), Username: acc.Username}, nil
}

// Verify validates a token and returns its account name. Accounts removed or
// expired since the token was issued are rejected.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	accounts, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	i := find(accounts, claims.Subject)
	if i < 0 {
		return "", ErrInvalidToken
	}
	if accounts[i].expired(s.now()) {
		return "", ErrAccountExpired
	}
	return accounts[i].Username, nil
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
