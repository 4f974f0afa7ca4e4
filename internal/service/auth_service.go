package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/cache"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const tokenCacheName = "token"

// CachedToken is what the token caches hold for a verified token.
// A zero ExpiresAt means the verifier did not report one.
type CachedToken struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t CachedToken) expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// AuthService resolves bearer tokens to user ids. Verified tokens are
// cached under a hash of the token, in process or in Redis, and never
// outlive the token's own expiry.
type AuthService struct {
	verifier  port.TokenVerifier
	local     port.Cache[CachedToken]
	remote    port.RemoteCache[CachedToken]
	remoteTTL time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuthService creates a new auth service. local may be nil.
func NewAuthService(verifier port.TokenVerifier, local port.Cache[CachedToken], metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{verifier: verifier, local: local, metrics: metrics, logger: logger}
}

// WithRemoteCache makes the service share verified tokens through rc.
// It takes precedence over the local cache.
func (s *AuthService) WithRemoteCache(rc port.RemoteCache[CachedToken], ttl time.Duration) *AuthService {
	s.remote = rc
	s.remoteTTL = ttl
	return s
}

// Authenticate returns the id of the user behind token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return "", &domain.ErrUnauthorized{Message: "Not authenticated"}
	}

	key := cache.TokenKey(token)
	if id, ok := s.cached(ctx, key); ok {
		s.metrics.IncrCacheHit(tokenCacheName)
		return id, nil
	}
	s.metrics.IncrCacheMiss(tokenCacheName)

	user, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		return "", err
	}
	if user == nil || user.ID == "" {
		return "", &domain.ErrUnauthorized{Message: "Invalid authentication credentials"}
	}

	s.store(ctx, key, CachedToken{UserID: user.ID, ExpiresAt: user.ExpiresAt})
	return user.ID, nil
}

func (s *AuthService) cached(ctx context.Context, key string) (string, bool) {
	var (
		tok CachedToken
		ok  bool
	)
	switch {
	case s.remote != nil:
		var err error
		tok, ok, err = s.remote.Get(ctx, key)
		if err != nil {
			s.logger.Warn("auth: remote token cache unavailable", zap.Error(err))
			return "", false
		}
	case s.local != nil:
		tok, ok = s.local.Get(key)
	}
	if !ok || tok.UserID == "" {
		return "", false
	}
	if tok.expired(time.Now()) {
		s.evict(ctx, key)
		return "", false
	}
	return tok.UserID, true
}

func (s *AuthService) store(ctx context.Context, key string, tok CachedToken) {
	now := time.Now()
	if tok.expired(now) {
		return
	}
	if s.remote != nil {
		ttl := s.remoteTTL
		if !tok.ExpiresAt.IsZero() {
			if left := tok.ExpiresAt.Sub(now); left < ttl {
				ttl = left
			}
		}
		if err := s.remote.Set(ctx, key, tok, ttl); err != nil {
			s.logger.Warn("auth: caching token failed", zap.Error(err))
		}
		return
	}
	if s.local != nil {
		s.local.Set(key, tok)
	}
}

func (s *AuthService) evict(ctx context.Context, key string) {
	if s.remote != nil {
		if err := s.remote.Delete(ctx, key); err != nil {
			s.logger.Warn("auth: evicting token failed", zap.Error(err))
		}
		return
	}
	if s.local != nil {
		s.local.Delete(key)
	}
}
