package store

import (
	"context"
	"sort"
	"sync"

	"worktrust/internal/fraud"
	id "worktrust/pkg/domain"
)

// InMemoryReviewStore keeps reviews keyed by ID.
type InMemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[id.ReviewID]*fraud.Review
}

func NewInMemoryReviewStore() *InMemoryReviewStore {
	return &InMemoryReviewStore{reviews: make(map[id.ReviewID]*fraud.Review)}
}

// ListByUser returns the user's reviews oldest first.
func (s *InMemoryReviewStore) ListByUser(_ context.Context, userID id.UserID) ([]*fraud.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*fraud.Review, 0)
	for _, r := range s.reviews {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewedAt.Before(out[j].ReviewedAt) })
	return out, nil
}

func (s *InMemoryReviewStore) Save(_ context.Context, review *fraud.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *review
	s.reviews[review.ID] = &cp
	return nil
}
