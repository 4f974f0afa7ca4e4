package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/spendlog/internal/service"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// bearerToken returns the token of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (token string, present bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// AuthMiddleware resolves the bearer token to a user id and stores it in
// the request context.
func AuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authSvc == nil {
				writeError(w, http.StatusServiceUnavailable, "auth service unavailable: Supabase not configured")
				return
			}

			log := logger.With(
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, present := bearerToken(r)
			switch {
			case !present:
				log.Debug("auth: missing token")
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			case token == "":
				log.Warn("auth: invalid authentication scheme")
				writeError(w, http.StatusUnauthorized, "Invalid authentication scheme")
				return
			}

			userID, err := authSvc.Authenticate(r.Context(), token)
			if err != nil {
				log.Warn("auth: token rejected", zap.Error(err))
				handleServiceError(w, err, logger)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("enduser.id", userID))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
