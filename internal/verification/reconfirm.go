package verification

import (
	"context"
	"strings"
	"sync"
)

// Reconfirmation is a platform's answer about whether a record still exists
// on the originating platform.
type Reconfirmation struct {
	Confirmed bool
	Evidence  string
}

// Reconfirmer re-confirms a record against its originating platform. Each
// external platform supplies its own implementation.
type Reconfirmer interface {
	Reconfirm(ctx context.Context, record *Record) (Reconfirmation, error)
}

// ReconfirmerFunc adapts a function to Reconfirmer.
type ReconfirmerFunc func(ctx context.Context, record *Record) (Reconfirmation, error)

func (f ReconfirmerFunc) Reconfirm(ctx context.Context, record *Record) (Reconfirmation, error) {
	return f(ctx, record)
}

// ReconfirmerRegistry resolves a Reconfirmer by platform name.
type ReconfirmerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Reconfirmer
}

func NewReconfirmerRegistry() *ReconfirmerRegistry {
	return &ReconfirmerRegistry{handlers: make(map[string]Reconfirmer)}
}

// Register binds r to platform, replacing any previous binding.
func (r *ReconfirmerRegistry) Register(platform string, rc Reconfirmer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[normalizePlatform(platform)] = rc
}

// Lookup is safe on a nil registry.
func (r *ReconfirmerRegistry) Lookup(platform string) (Reconfirmer, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.handlers[normalizePlatform(platform)]
	return rc, ok
}

func normalizePlatform(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
