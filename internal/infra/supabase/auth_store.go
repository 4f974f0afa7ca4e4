package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Backend side: token verification & admin
// ============================================================

// VerifyToken asks GoTrue who owns token (GET /auth/v1/user).
// Implements port.TokenVerifier.
func (c *Client) VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.VerifyToken")
	defer span.End()

	var user domain.AuthUser
	if err := c.call(ctx, http.MethodGet, "user", token, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "Invalid authentication credentials"}
	}
	if exp, err := TokenExpiry(token); err == nil {
		user.ExpiresAt = exp
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	return &user, nil
}

// DeleteIdentity removes the account from the identity provider with the
// service role key. A missing account counts as deleted.
// Implements port.IdentityAdmin.
func (c *Client) DeleteIdentity(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteIdentity")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if c.serviceRoleKey == "" {
		return fmt.Errorf("supabase: service role key not configured")
	}

	err := c.call(ctx, http.MethodDelete, "admin/users/"+url.PathEscape(userID), c.serviceRoleKey, nil, nil)
	if _, ok := err.(*domain.ErrNotFound); ok {
		c.logger.Info("supabase: identity already gone", zap.String("user_id", userID))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.Info("supabase: identity deleted", zap.String("user_id", userID))
	return nil
}

// ============================================================
// Client side: password sessions
// ============================================================

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignInWithPassword")
	defer span.End()

	var s domain.Session
	if err := c.call(ctx, http.MethodPost, "token?grant_type=password", "", creds, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignUp registers a new account. The session is nil when the project
// requires email confirmation before the first sign-in.
func (c *Client) SignUp(ctx context.Context, creds domain.Credentials, fullName string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	payload := map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
		"data":     map[string]any{"full_name": fullName},
	}
	var s domain.Session
	if err := c.call(ctx, http.MethodPost, "signup", "", payload, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

// Refresh trades a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Refresh")
	defer span.End()

	var s domain.Session
	payload := map[string]string{"refresh_token": refreshToken}
	if err := c.call(ctx, http.MethodPost, "token?grant_type=refresh_token", "", payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	return c.call(ctx, http.MethodPost, "logout", accessToken, nil, nil)
}
