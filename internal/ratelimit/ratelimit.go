// Package ratelimit throttles unauthenticated callers of the public
// endpoints with a sliding-window counter per client address.
package ratelimit

import (
	"context"
	"time"
)

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a slot frees up; zero when allowed.
	RetryAfter int
}

// Store counts requests per key over a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

func retryAfter(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
