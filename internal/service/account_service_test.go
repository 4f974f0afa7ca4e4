package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/port"
	"github.com/boddenberg/spendlog/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockUserStore struct {
	users   map[string]*domain.User
	updates []*domain.UserUpdate
}

func newMockUserStore(users ...*domain.User) *mockUserStore {
	m := &mockUserStore{users: map[string]*domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, in *domain.UserSync) (*domain.User, error) {
	u := &domain.User{ID: in.ID, Email: in.Email, FullName: in.FullName, AvatarURL: in.AvatarURL}
	m.users[in.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, id string, in *domain.UserUpdate) (*domain.User, error) {
	m.updates = append(m.updates, in)
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	return u, nil
}

func (m *mockUserStore) DeleteUser(_ context.Context, id string) (bool, error) {
	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

type mockIdentityAdmin struct {
	deleted []string
	err     error
}

func (m *mockIdentityAdmin) DeleteIdentity(_ context.Context, userID string) error {
	m.deleted = append(m.deleted, userID)
	return m.err
}

type mockPublisher struct {
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, ev domain.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func newAccounts(users *mockUserStore, identity port.IdentityAdmin, events port.EventPublisher) *service.AccountService {
	return service.NewAccountService(users, identity, events, observability.NewMetrics(), zap.NewNop())
}

// --- Tests ---

func TestSyncUser_ForbiddenForOtherUser(t *testing.T) {
	svc := newAccounts(newMockUserStore(), nil, nil)

	_, err := svc.SyncUser(context.Background(), "u1", &domain.UserSync{ID: "u2", Email: "x@example.com"})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSyncUser_CreatesThenRefreshes(t *testing.T) {
	users := newMockUserStore()
	svc := newAccounts(users, nil, nil)
	ctx := context.Background()

	u, err := svc.SyncUser(ctx, "u1", &domain.UserSync{ID: "u1", Email: "a@example.com", FullName: "Ada"})
	if err != nil || u.FullName != "Ada" {
		t.Fatalf("create: %+v %v", u, err)
	}

	u, err = svc.SyncUser(ctx, "u1", &domain.UserSync{ID: "u1", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if u.Email != "b@example.com" || u.FullName != "Ada" {
		t.Errorf("expected email refreshed and name kept, got %+v", u)
	}
}

func TestGetUser(t *testing.T) {
	svc := newAccounts(newMockUserStore(&domain.User{ID: "u1", Email: "a@example.com"}), nil, nil)
	ctx := context.Background()

	if _, err := svc.GetUser(ctx, "u1", "u1"); err != nil {
		t.Fatalf("expected own user, got %v", err)
	}

	_, err := svc.GetUser(ctx, "u2", "u1")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	_, err = svc.GetUser(ctx, "u3", "u3")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdateUser_IgnoresEmail(t *testing.T) {
	users := newMockUserStore(&domain.User{ID: "u1", Email: "a@example.com"})
	svc := newAccounts(users, nil, nil)

	email := "evil@example.com"
	name := "Ada"
	u, err := svc.UpdateUser(context.Background(), "u1", "u1", &domain.UserUpdate{FullName: &name, Email: &email})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.Email != "a@example.com" || u.FullName != "Ada" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestDeleteUser_PublishesEvent(t *testing.T) {
	users := newMockUserStore(&domain.User{ID: "u1"})
	identity := &mockIdentityAdmin{}
	events := &mockPublisher{}
	svc := newAccounts(users, identity, events)

	if err := svc.DeleteUser(context.Background(), "u1", "u1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(events.events) != 1 || events.events[0].Type != domain.EventUserDeleted || events.events[0].UserID != "u1" {
		t.Errorf("expected user.deleted event, got %+v", events.events)
	}
	if len(identity.deleted) != 0 {
		t.Error("identity must be deleted by the worker, not inline")
	}
}

func TestDeleteUser_PublishFailureFallsBackInline(t *testing.T) {
	users := newMockUserStore(&domain.User{ID: "u1"})
	identity := &mockIdentityAdmin{}
	svc := newAccounts(users, identity, &mockPublisher{err: errors.New("broker down")})

	if err := svc.DeleteUser(context.Background(), "u1", "u1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(identity.deleted) != 1 || identity.deleted[0] != "u1" {
		t.Errorf("expected inline identity deletion, got %v", identity.deleted)
	}
}

func TestDeleteUser_IdentityFailureIsNotReturned(t *testing.T) {
	users := newMockUserStore(&domain.User{ID: "u1"})
	svc := newAccounts(users, &mockIdentityAdmin{err: errors.New("boom")}, nil)

	if err := svc.DeleteUser(context.Background(), "u1", "u1"); err != nil {
		t.Fatalf("expected local deletion to succeed, got %v", err)
	}
	if _, ok := users.users["u1"]; ok {
		t.Error("expected local user removed")
	}
}

func TestDeleteUser_NotFoundAndForbidden(t *testing.T) {
	svc := newAccounts(newMockUserStore(), nil, nil)

	var notFound *domain.ErrNotFound
	if err := svc.DeleteUser(context.Background(), "u1", "u1"); !errors.As(err, &notFound) {
		t.Errorf("expected not found, got %v", err)
	}
	var forbidden *domain.ErrForbidden
	if err := svc.DeleteUser(context.Background(), "u1", "u2"); !errors.As(err, &forbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestFinishDeletion(t *testing.T) {
	identity := &mockIdentityAdmin{}
	svc := newAccounts(newMockUserStore(), identity, nil)
	ctx := context.Background()

	if err := svc.FinishDeletion(ctx, domain.Event{Type: "something.else", UserID: "u1"}); err != nil {
		t.Errorf("unrelated events must be ignored, got %v", err)
	}
	if err := svc.FinishDeletion(ctx, domain.Event{Type: domain.EventUserDeleted, UserID: "u1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(identity.deleted) != 1 {
		t.Errorf("expected one identity deletion, got %v", identity.deleted)
	}

	identity.err = errors.New("gotrue down")
	if err := svc.FinishDeletion(ctx, domain.Event{Type: domain.EventUserDeleted, UserID: "u2"}); err == nil {
		t.Error("expected error so the message is requeued")
	}
}

func TestHandleAuthWebhook(t *testing.T) {
	users := newMockUserStore(&domain.User{ID: "old"})
	svc := newAccounts(users, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		in     *domain.AuthWebhook
		status string
		reason string
	}{
		{"update ignored", &domain.AuthWebhook{Type: "UPDATE", Record: &domain.WebhookRecord{ID: "x", Email: "x@example.com"}}, domain.WebhookIgnored, "unknown_event"},
		{"missing email", &domain.AuthWebhook{Type: "INSERT", Record: &domain.WebhookRecord{ID: "x"}}, domain.WebhookIgnored, "missing_data"},
		{"existing user", &domain.AuthWebhook{Type: "INSERT", Record: &domain.WebhookRecord{ID: "old", Email: "o@example.com"}}, domain.WebhookExists, ""},
		{"new user", &domain.AuthWebhook{Type: "INSERT", Record: &domain.WebhookRecord{
			ID: "new", Email: "n@example.com", RawUserMetadata: map[string]any{"name": "Nia"},
		}}, domain.WebhookCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.HandleAuthWebhook(ctx, tt.in)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Status != tt.status || res.Reason != tt.reason {
				t.Errorf("got %+v, want status %s reason %s", res, tt.status, tt.reason)
			}
		})
	}

	if u := users.users["new"]; u == nil || u.FullName != "Nia" {
		t.Errorf("expected user created from webhook metadata, got %+v", u)
	}
}
