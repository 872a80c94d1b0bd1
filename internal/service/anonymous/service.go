// Package anonymous issues guest session tokens. A token resolves to the
// guest id that keys the guest's cart.
package anonymous

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/logging"
	tokenrepo "storefront/internal/repository/token"
)

var ErrInvalidToken = errors.New("invalid token")

const defaultTTL = 30 * 24 * time.Hour

type Service struct {
	tokens *tokenManager
	ttl    time.Duration
	logger *zap.Logger
}

type Option func(*Service)

// WithRepository stores tokens in repo instead of process memory.
func WithRepository(repo tokenrepo.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.tokens.repo = repo
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l).Named("anonymous") }
}

// New returns a Service whose tokens live for ttl. A non-positive ttl
// uses thirty days.
func New(ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	s := &Service{
		tokens: newTokenManager(tokenrepo.NewMemory(), time.Now),
		ttl:    ttl,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is a freshly issued guest session.
type Session struct {
	Token     string `json:"token"`
	GuestID   string `json:"guestId"`
	ExpiresIn int    `json:"expiresIn"`
}

func (s *Service) Issue(ctx context.Context) (Session, error) {
	guestID := uuid.NewString()
	token, err := s.tokens.Issue(ctx, guestID, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, GuestID: guestID, ExpiresIn: s.TTLSeconds()}, nil
}

// LookupByToken returns the guest id bound to token.
func (s *Service) LookupByToken(ctx context.Context, token string) (string, error) {
	meta, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return "", ErrInvalidToken
	}
	return meta.GuestID, nil
}

// Revoke invalidates token, e.g. once its cart has been merged at login.
// Failures are logged; the token still expires on its own.
func (s *Service) Revoke(ctx context.Context, token string) {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("revoke guest token", zap.Error(err))
	}
}

// PurgeExpired deletes tokens that have expired.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.repo.PurgeExpired(ctx, s.tokens.now())
}

func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}
