// Package requestcontext provides HTTP-independent accessors for request-scoped values.
//
// Middleware sets these values; services read them. The package has no net/http
// dependency so services and stores can import it freely.
//
//	principalID := requestcontext.PrincipalID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	principalIDKey       struct{}
	sessionIDKey         struct{}
	twoFactorVerifiedKey struct{}
	clientIPKey          struct{}
	userAgentKey         struct{}
	requestIDKey         struct{}
	requestTimeKey       struct{}
)

// -----------------------------------------------------------------------------
// Identity (asserted by the identity provider, bound by the session)
// -----------------------------------------------------------------------------

// PrincipalID returns the principal the request acts for, or "" when unauthenticated.
func PrincipalID(ctx context.Context) string {
	if v, ok := ctx.Value(principalIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithPrincipalID(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalIDKey{}, principalID)
}

func SessionID(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// TwoFactorVerified reports the identity provider's assertion for this request.
// The value is only as trustworthy as the proxy that set it.
func TwoFactorVerified(ctx context.Context) bool {
	v, _ := ctx.Value(twoFactorVerifiedKey{}).(bool)
	return v
}

func WithTwoFactorVerified(ctx context.Context, verified bool) context.Context {
	return context.WithValue(ctx, twoFactorVerifiedKey{}, verified)
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() outside of
// HTTP handling (workers, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
