// Package revocation holds the fast revocation lookups consulted when a
// credential is verified.
package revocation

import (
	"context"
	"sync"
	"time"

	"worktrust/pkg/requestcontext"
)

// InMemoryList is a single-process revocation list.
type InMemoryList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // zero time means no expiry
}

func NewInMemoryList() *InMemoryList {
	return &InMemoryList{revoked: make(map[string]time.Time)}
}

func (l *InMemoryList) Revoke(ctx context.Context, credentialID string, ttl time.Duration) error {
	if credentialID == "" {
		return nil
	}
	var until time.Time
	if ttl > 0 {
		until = requestcontext.Now(ctx).Add(ttl)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[credentialID] = until
	return nil
}

func (l *InMemoryList) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	until, ok := l.revoked[credentialID]
	if !ok {
		return false, nil
	}
	return until.IsZero() || requestcontext.Now(ctx).Before(until), nil
}

func (l *InMemoryList) Seed(ctx context.Context, credentialIDs []string) error {
	for _, cid := range credentialIDs {
		if err := l.Revoke(ctx, cid, 0); err != nil {
			return err
		}
	}
	return nil
}
