package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/account")

// AccountService manages the local mirror of identity provider users.
// identity and events are optional: without events, identity deletion
// runs inline; without either, it is skipped.
type AccountService struct {
	users    port.UserStore
	identity port.IdentityAdmin
	events   port.EventPublisher
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(users port.UserStore, identity port.IdentityAdmin, events port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) *AccountService {
	return &AccountService{users: users, identity: identity, events: events, metrics: metrics, logger: logger}
}

func userNotFound(id string) error {
	return &domain.ErrNotFound{Resource: "User", ID: id}
}

func checkCaller(callerID, userID, action string) error {
	if callerID != userID {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// ============================================================
// Users
// ============================================================

// SyncUser creates the caller's user or refreshes its email, and its name
// and avatar when given.
func (s *AccountService) SyncUser(ctx context.Context, callerID string, in *domain.UserSync) (*domain.User, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.SyncUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", in.ID))

	if err := checkCaller(callerID, in.ID, "sync this user"); err != nil {
		return nil, err
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "is required"}
	}

	existing, err := s.users.GetUser(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if existing == nil {
		u, err := s.users.CreateUser(ctx, in)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user created", zap.String("user_id", u.ID))
		return u, nil
	}

	upd := &domain.UserUpdate{Email: &in.Email}
	if in.FullName != "" {
		upd.FullName = &in.FullName
	}
	if in.AvatarURL != "" {
		upd.AvatarURL = &in.AvatarURL
	}
	u, err := s.users.UpdateUser(ctx, in.ID, upd)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, userNotFound(in.ID)
	}
	return u, nil
}

func (s *AccountService) GetUser(ctx context.Context, callerID, userID string) (*domain.User, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.GetUser")
	defer span.End()

	if err := checkCaller(callerID, userID, "view this user"); err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, userNotFound(userID)
	}
	return u, nil
}

func (s *AccountService) UpdateUser(ctx context.Context, callerID, userID string, in *domain.UserUpdate) (*domain.User, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.UpdateUser")
	defer span.End()

	if err := checkCaller(callerID, userID, "update this user"); err != nil {
		return nil, err
	}
	in.Email = nil

	u, err := s.users.UpdateUser(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, userNotFound(userID)
	}
	return u, nil
}

// DeleteUser removes the caller's data, then the identity provider account.
// The local deletion is what the caller observes: identity provider
// failures are logged and do not fail the request.
func (s *AccountService) DeleteUser(ctx context.Context, callerID, userID string) error {
	ctx, span := accountTracer.Start(ctx, "AccountService.DeleteUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := checkCaller(callerID, userID, "delete this user"); err != nil {
		return err
	}

	ok, err := s.users.DeleteUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return userNotFound(userID)
	}
	s.logger.Info("user deleted", zap.String("user_id", userID))

	ev := domain.Event{Type: domain.EventUserDeleted, UserID: userID, OccurredAt: time.Now().UTC()}
	if s.events != nil {
		err := s.events.Publish(ctx, ev)
		if err == nil {
			s.metrics.IncrEvent(ev.Type, "published")
			return nil
		}
		s.metrics.IncrEvent(ev.Type, "publish_failed")
		s.logger.Warn("user.deleted publish failed, deleting identity inline",
			zap.String("user_id", userID), zap.Error(err))
	}

	if err := s.FinishDeletion(ctx, ev); err != nil {
		s.logger.Error("identity deletion failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

// FinishDeletion removes the identity provider account named by a
// user.deleted event. Other event types are ignored.
func (s *AccountService) FinishDeletion(ctx context.Context, ev domain.Event) error {
	ctx, span := accountTracer.Start(ctx, "AccountService.FinishDeletion")
	defer span.End()

	if ev.Type != domain.EventUserDeleted {
		s.logger.Debug("ignoring event", zap.String("type", ev.Type))
		return nil
	}
	if ev.UserID == "" {
		return &domain.ErrValidation{Field: "user_id", Message: "is required"}
	}
	if s.identity == nil {
		s.logger.Warn("identity admin not configured, auth account kept", zap.String("user_id", ev.UserID))
		return nil
	}

	if err := s.identity.DeleteIdentity(ctx, ev.UserID); err != nil {
		s.metrics.IncrEvent(ev.Type, "failed")
		return fmt.Errorf("delete identity: %w", err)
	}
	s.metrics.IncrEvent(ev.Type, "processed")
	s.logger.Info("identity deleted", zap.String("user_id", ev.UserID))
	return nil
}

// ============================================================
// Auth webhook
// ============================================================

// HandleAuthWebhook creates the local user for an auth.users INSERT.
// Malformed or unrelated payloads are acknowledged and ignored so the
// identity provider does not retry them.
func (s *AccountService) HandleAuthWebhook(ctx context.Context, wh *domain.AuthWebhook) (*domain.WebhookResult, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.HandleAuthWebhook")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.type", wh.Type))

	if wh.Type != "INSERT" || wh.Record == nil {
		return &domain.WebhookResult{Status: domain.WebhookIgnored, Reason: "unknown_event"}, nil
	}
	if wh.Record.ID == "" || wh.Record.Email == "" {
		s.logger.Warn("webhook: missing id or email")
		return &domain.WebhookResult{Status: domain.WebhookIgnored, Reason: "missing_data"}, nil
	}

	existing, err := s.users.GetUser(ctx, wh.Record.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		return &domain.WebhookResult{Status: domain.WebhookExists, UserID: existing.ID}, nil
	}

	u, err := s.users.CreateUser(ctx, wh.Record.UserSync())
	if err != nil {
		return nil, err
	}
	s.logger.Info("webhook: user created", zap.String("user_id", u.ID))
	return &domain.WebhookResult{Status: domain.WebhookCreated, UserID: u.ID}, nil
}
