// Package session holds the signed-in user of a SpendLog client and
// hands its access token to the REST client.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/supabase"

	"go.uber.org/zap"
)

// AuthProvider is the identity provider's session API (Supabase GoTrue).
type AuthProvider interface {
	SignInWithPassword(ctx context.Context, creds domain.Credentials) (*domain.Session, error)
	SignUp(ctx context.Context, creds domain.Credentials, fullName string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// UserSyncer mirrors the signed-in user's profile to the backend.
type UserSyncer interface {
	CreateOrSyncUser(ctx context.Context, in *domain.UserSync) (*domain.User, error)
}

// Listener is told about every auth state change. user is nil once
// signed out.
type Listener func(ctx context.Context, user *domain.AuthUser)

// Store persists the session between runs.
type Store interface {
	Load() (*domain.Session, error)
	Save(s *domain.Session) error
	Clear() error
}

// Manager tracks the current session. It implements the REST client's
// CredentialProvider.
type Manager struct {
	provider AuthProvider
	store    Store
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	session   *domain.Session
	user      *domain.AuthUser
	loading   bool
	syncer    UserSyncer
	listeners []Listener
}

// NewManager creates a manager that starts in the loading state. store
// may be nil.
func NewManager(provider AuthProvider, store Store, logger *zap.Logger) *Manager {
	return &Manager{provider: provider, store: store, logger: logger, now: time.Now, loading: true}
}

// SetSyncer sets the backend the profile is synced to on sign-in. It is
// separate from NewManager because the REST client itself needs the manager.
func (m *Manager) SetSyncer(s UserSyncer) {
	m.mu.Lock()
	m.syncer = s
	m.mu.Unlock()
}

// Subscribe registers l for future auth state changes.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// OnAuthStateChange installs s (nil when signed out) as the current
// session: the token is mirrored, the user stored and loading marked
// done. With a user the profile is synced to the backend; a sync error
// is logged and not returned. Listeners run last.
func (m *Manager) OnAuthStateChange(ctx context.Context, s *domain.Session) {
	m.mu.Lock()
	m.session = s
	m.user = nil
	if s != nil {
		m.user = s.User
	}
	m.loading = false
	user, syncer := m.user, m.syncer
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if m.store != nil {
		var err error
		if s == nil {
			err = m.store.Clear()
		} else {
			err = m.store.Save(s)
		}
		if err != nil {
			m.logger.Warn("session: persist failed", zap.Error(err))
		}
	}

	if user != nil && syncer != nil {
		if _, err := syncer.CreateOrSyncUser(ctx, user.Sync()); err != nil {
			m.logger.Error("session: failed to sync user to backend", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	for _, l := range listeners {
		l(ctx, user)
	}
}

// Restore loads the persisted session, if any, as the initial state.
func (m *Manager) Restore(ctx context.Context) error {
	var s *domain.Session
	if m.store != nil {
		loaded, err := m.store.Load()
		if err != nil {
			m.OnAuthStateChange(ctx, nil)
			return fmt.Errorf("restore session: %w", err)
		}
		s = loaded
	}
	m.OnAuthStateChange(ctx, s)
	return nil
}

// User returns the signed-in user, or nil.
func (m *Manager) User() *domain.AuthUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Loading reports whether the initial session is still unknown.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Token returns the mirrored access token. When there is none, or it has
// expired, it falls back to the provider's current session by refreshing.
// The fallback is best-effort: on failure the request goes out without a
// token and the backend answers 401.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	s := m.session
	m.mu.RUnlock()

	if s != nil && s.AccessToken != "" && !m.expired(s.AccessToken) {
		return s.AccessToken, nil
	}
	if s == nil || s.RefreshToken == "" {
		return "", nil
	}

	fresh, err := m.provider.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.Warn("session: refresh failed", zap.Error(err))
		return "", nil
	}
	if fresh.User == nil {
		fresh.User = s.User
	}
	m.OnAuthStateChange(ctx, fresh)
	return fresh.AccessToken, nil
}

func (m *Manager) expired(token string) bool {
	exp, err := supabase.TokenExpiry(token)
	if err != nil {
		// Opaque tokens are passed through as is.
		return false
	}
	return !m.now().Before(exp)
}

// SignInWithPassword signs in and installs the new session.
func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) error {
	s, err := m.provider.SignInWithPassword(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	m.OnAuthStateChange(ctx, s)
	return nil
}

// SignUp registers an account. When the provider returns a session right
// away it is installed; otherwise the user must confirm the email first.
func (m *Manager) SignUp(ctx context.Context, email, password, fullName string) (confirmed bool, err error) {
	s, err := m.provider.SignUp(ctx, domain.Credentials{Email: email, Password: password}, fullName)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, nil
	}
	m.OnAuthStateChange(ctx, s)
	return true, nil
}

// SignOut revokes the session. Local state is cleared even when the
// provider call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.RLock()
	s := m.session
	m.mu.RUnlock()

	var err error
	if s != nil && s.AccessToken != "" {
		if err = m.provider.SignOut(ctx, s.AccessToken); err != nil {
			m.logger.Error("session: error signing out", zap.Error(err))
		}
	}
	m.OnAuthStateChange(ctx, nil)
	return err
}
