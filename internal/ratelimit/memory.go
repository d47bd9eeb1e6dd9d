package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps windows in process memory. Limits are per instance.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string][]time.Time), now: time.Now}
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hits := prune(s.windows[key], now.Add(-window))
	if len(hits) >= limit {
		s.windows[key] = hits
		resetAt := now.Add(window)
		if len(hits) > 0 {
			resetAt = hits[0].Add(window)
		}
		return &Result{
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}

	hits = append(hits, now)
	s.windows[key] = hits
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// prune drops timestamps at or before cutoff. hits is sorted.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
