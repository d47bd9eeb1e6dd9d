package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"worktrust/pkg/platform/httputil"
	"worktrust/pkg/platform/middleware/metadata"
	"worktrust/pkg/requestcontext"
)

const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute
)

// Middleware applies one limit per client IP. Store failures let the
// request through.
type Middleware struct {
	store  Store
	logger *slog.Logger
	limit  int
	window time.Duration
}

type Option func(*Middleware)

func WithLimit(limit int, window time.Duration) Option {
	return func(m *Middleware) {
		if limit > 0 {
			m.limit = limit
		}
		if window > 0 {
			m.window = window
		}
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, logger: logger, limit: DefaultLimit, window: DefaultWindow}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerIP limits requests by the address ClientMetadata recorded. class
// separates the budgets of unrelated endpoint groups.
func (m *Middleware) PerIP(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := metadata.GetClientIP(ctx)
			if ip == "" {
				ip = metadata.ClientIPFromRequest(r)
			}

			result, err := m.store.Allow(ctx, class+":"+ip, m.limit, m.window)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":             "rate_limit_exceeded",
					"error_description": "too many requests, retry later",
					"retry_after":       result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
