// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services and handlers read them without
// importing net/http.
//
//	userID := requestcontext.UserID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"

	id "worktrust/pkg/domain"
)

type (
	userIDKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID returns the authenticated user, or the zero UserID.
func UserID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// RequestID returns the correlation ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now. Every
// timestamp written during one request agrees.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
