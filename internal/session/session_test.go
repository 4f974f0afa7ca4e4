package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/supabase"
	"github.com/boddenberg/spendlog/internal/session"

	"go.uber.org/zap"
)

type mockProvider struct {
	signIn     *domain.Session
	signInErr  error
	refreshed  *domain.Session
	refreshErr error
	refreshes  int
	signOutErr error
	signedOut  []string
}

func (m *mockProvider) SignInWithPassword(context.Context, domain.Credentials) (*domain.Session, error) {
	return m.signIn, m.signInErr
}

func (m *mockProvider) SignUp(_ context.Context, _ domain.Credentials, _ string) (*domain.Session, error) {
	return nil, nil
}

func (m *mockProvider) Refresh(context.Context, string) (*domain.Session, error) {
	m.refreshes++
	return m.refreshed, m.refreshErr
}

func (m *mockProvider) SignOut(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return m.signOutErr
}

type mockSyncer struct {
	synced []*domain.UserSync
	err    error
}

func (m *mockSyncer) CreateOrSyncUser(_ context.Context, in *domain.UserSync) (*domain.User, error) {
	m.synced = append(m.synced, in)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.User{ID: in.ID, Email: in.Email}, nil
}

func token(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := supabase.SignToken("secret", "u1", "u1@example.com", ttl)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func userSession(access string) *domain.Session {
	return &domain.Session{
		AccessToken:  access,
		RefreshToken: "refresh",
		User: &domain.AuthUser{
			ID:           "u1",
			Email:        "u1@example.com",
			UserMetadata: map[string]any{"full_name": "User One", "avatar_url": "https://img/u1.png"},
		},
	}
}

func TestSignIn_MirrorsTokenAndSyncs(t *testing.T) {
	access := token(t, time.Hour)
	provider := &mockProvider{signIn: userSession(access)}
	syncer := &mockSyncer{}
	m := session.NewManager(provider, nil, zap.NewNop())
	m.SetSyncer(syncer)

	var notified []*domain.AuthUser
	m.Subscribe(func(_ context.Context, u *domain.AuthUser) { notified = append(notified, u) })

	if !m.Loading() {
		t.Error("expected loading before the first auth event")
	}
	if err := m.SignInWithPassword(context.Background(), "u1@example.com", "pw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Token(context.Background())
	if err != nil || got != access {
		t.Errorf("Token() = %q, %v", got, err)
	}
	if m.Loading() || m.User() == nil || m.User().ID != "u1" {
		t.Errorf("unexpected state loading=%v user=%+v", m.Loading(), m.User())
	}
	if len(syncer.synced) != 1 {
		t.Fatalf("expected one sync, got %d", len(syncer.synced))
	}
	if s := syncer.synced[0]; s.ID != "u1" || s.FullName != "User One" || s.AvatarURL != "https://img/u1.png" {
		t.Errorf("unexpected sync payload %+v", s)
	}
	if len(notified) != 1 || notified[0].ID != "u1" {
		t.Errorf("expected listener notified with the user, got %+v", notified)
	}
}

func TestSignIn_SyncErrorNotPropagated(t *testing.T) {
	provider := &mockProvider{signIn: userSession(token(t, time.Hour))}
	m := session.NewManager(provider, nil, zap.NewNop())
	m.SetSyncer(&mockSyncer{err: errors.New("backend down")})

	if err := m.SignInWithPassword(context.Background(), "a", "b"); err != nil {
		t.Fatalf("expected sync failure to be swallowed, got %v", err)
	}
	if m.User() == nil {
		t.Error("expected the user to be signed in")
	}
}

func TestSignIn_ProviderError(t *testing.T) {
	provider := &mockProvider{signInErr: &domain.ErrUnauthorized{Message: "Invalid login credentials"}}
	m := session.NewManager(provider, nil, zap.NewNop())
	if err := m.SignInWithPassword(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected an error")
	}
	if m.User() != nil {
		t.Error("expected no user")
	}
}

func TestToken_RefreshesExpired(t *testing.T) {
	fresh := token(t, time.Hour)
	provider := &mockProvider{refreshed: &domain.Session{AccessToken: fresh, RefreshToken: "r2"}}
	m := session.NewManager(provider, nil, zap.NewNop())
	m.OnAuthStateChange(context.Background(), userSession(token(t, -time.Minute)))

	got, err := m.Token(context.Background())
	if err != nil || got != fresh {
		t.Fatalf("Token() = %q, %v; want refreshed token", got, err)
	}
	if provider.refreshes != 1 {
		t.Errorf("expected one refresh, got %d", provider.refreshes)
	}
	if m.User() == nil || m.User().ID != "u1" {
		t.Error("expected the user to survive the refresh")
	}

	if got, _ := m.Token(context.Background()); got != fresh || provider.refreshes != 1 {
		t.Errorf("expected the mirrored token without another refresh")
	}
}

func TestToken_FallbackIsBestEffort(t *testing.T) {
	provider := &mockProvider{refreshErr: errors.New("offline")}
	m := session.NewManager(provider, nil, zap.NewNop())

	if got, err := m.Token(context.Background()); got != "" || err != nil {
		t.Errorf("signed out: Token() = %q, %v", got, err)
	}

	m.OnAuthStateChange(context.Background(), userSession(token(t, -time.Minute)))
	if got, err := m.Token(context.Background()); got != "" || err != nil {
		t.Errorf("failed refresh: Token() = %q, %v", got, err)
	}
}

func TestSignOut_ClearsEvenOnProviderError(t *testing.T) {
	access := token(t, time.Hour)
	provider := &mockProvider{signOutErr: errors.New("network")}
	m := session.NewManager(provider, nil, zap.NewNop())
	m.OnAuthStateChange(context.Background(), userSession(access))

	var last *domain.AuthUser = &domain.AuthUser{}
	m.Subscribe(func(_ context.Context, u *domain.AuthUser) { last = u })

	if err := m.SignOut(context.Background()); err == nil {
		t.Error("expected the provider error to be reported")
	}
	if m.User() != nil {
		t.Error("expected user cleared")
	}
	if got, _ := m.Token(context.Background()); got != "" {
		t.Errorf("expected no token, got %q", got)
	}
	if last != nil {
		t.Error("expected listeners told about the sign-out")
	}
	if len(provider.signedOut) != 1 || provider.signedOut[0] != access {
		t.Errorf("unexpected sign-out calls %v", provider.signedOut)
	}
}

func TestFileStore_RoundTripAndRestore(t *testing.T) {
	store := session.NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	if s, err := store.Load(); s != nil || err != nil {
		t.Fatalf("expected empty store, got %+v, %v", s, err)
	}

	access := token(t, time.Hour)
	m := session.NewManager(&mockProvider{signIn: userSession(access)}, store, zap.NewNop())
	if err := m.SignInWithPassword(context.Background(), "a", "b"); err != nil {
		t.Fatal(err)
	}

	restored := session.NewManager(&mockProvider{}, store, zap.NewNop())
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, _ := restored.Token(context.Background()); got != access {
		t.Errorf("expected restored token, got %q", got)
	}
	if restored.Loading() {
		t.Error("expected loading done after restore")
	}

	if err := restored.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s, _ := store.Load(); s != nil {
		t.Errorf("expected store cleared, got %+v", s)
	}
}
