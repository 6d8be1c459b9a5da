package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dibyendu78/Brain-O-Math/pkg/requestcontext"
)

// Claims represents the identity carried by a validated bearer token.
type Claims struct {
	CoordinatorID  string
	Email          string
	SchoolName     string
	RegistrationID string
	Admin          bool
}

// TokenValidator validates bearer tokens issued at login.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type claimsKey struct{}

// ClaimsFrom returns the validated claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

const bearerPrefix = "Bearer "

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

// RequireAuth rejects requests without a valid coordinator bearer token and
// stores the coordinator identity in context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "access denied: no token provided")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx = requestcontext.WithCoordinatorID(ctx, claims.CoordinatorID)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose bearer token does not carry the admin
// role.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, "access denied: no token provided")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil || !claims.Admin {
				logger.WarnContext(ctx, "forbidden - admin token required",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"success":false,"message":"admin access required"}`))
				return
			}

			ctx = requestcontext.WithAdmin(ctx)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
