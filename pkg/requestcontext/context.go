// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"
	"time"
)

type (
	coordinatorIDKey struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
	adminKey         struct{}
)

// Exported keys for tests that need raw context.WithValue.
var (
	ContextKeyCoordinatorID = coordinatorIDKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
	ContextKeyAdmin         = adminKey{}
)

// CoordinatorID retrieves the authenticated coordinator ID from the context.
// Returns "" if not set.
func CoordinatorID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyCoordinatorID).(string); ok {
		return id
	}
	return ""
}

// WithCoordinatorID injects a coordinator ID into the context.
func WithCoordinatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyCoordinatorID, id)
}

// IsAdmin reports whether the context carries an authenticated admin.
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(ContextKeyAdmin).(bool)
	return ok && admin
}

// WithAdmin marks the context as carrying an authenticated admin.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyAdmin, true)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts like workers and tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed time into a context. Useful for service unit
// tests that don't run the middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
