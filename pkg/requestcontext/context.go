// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets services depend on it without pulling in transport code.
//
// Usage in services (read values):
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	subjectKey     struct{}
	rolesKey       struct{}
	idemKey        struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID      = requestIDKey{}
	ContextKeyRequestTime    = requestTimeKey{}
	ContextKeySubject        = subjectKey{}
	ContextKeyRoles          = rolesKey{}
	ContextKeyIdempotencyKey = idemKey{}
)

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

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

// IdempotencyKey retrieves the client-supplied Idempotency-Key, if any.
func IdempotencyKey(ctx context.Context) string {
	if k, ok := ctx.Value(ContextKeyIdempotencyKey).(string); ok {
		return k
	}
	return ""
}

// WithIdempotencyKey injects the Idempotency-Key into the context.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyIdempotencyKey, key)
}

// -----------------------------------------------------------------------------
// Back-office principal
// -----------------------------------------------------------------------------

// Subject retrieves the authenticated operator from the context.
// Returns "" for anonymous storefront calls.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(ContextKeySubject).(string); ok {
		return s
	}
	return ""
}

// Roles retrieves the roles granted by the bearer token.
func Roles(ctx context.Context) []string {
	if r, ok := ctx.Value(ContextKeyRoles).([]string); ok {
		return r
	}
	return nil
}

// HasRole reports whether the principal carries role.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range Roles(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// WithPrincipal injects the authenticated subject and roles.
func WithPrincipal(ctx context.Context, subject string, roles []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeySubject, subject)
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, the seed runner, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
