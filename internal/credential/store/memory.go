package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"worktrust/internal/credential"
	id "worktrust/pkg/domain"
	"worktrust/pkg/platform/sentinel"
)

// InMemoryCredentialStore keeps issued credentials in a map. The embedded
// VerifiableCredential is shared, never mutated after issuance.
type InMemoryCredentialStore struct {
	mu      sync.RWMutex
	records map[string]credential.Record
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{records: make(map[string]credential.Record)}
}

func (s *InMemoryCredentialStore) Save(_ context.Context, record *credential.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = *record
	return nil
}

func (s *InMemoryCredentialStore) FindByID(_ context.Context, credentialID string) (*credential.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// ListBySubject returns the subject's credentials, newest first.
func (s *InMemoryCredentialStore) ListBySubject(_ context.Context, subjectID id.UserID) ([]*credential.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*credential.Record, 0)
	for _, r := range s.records {
		if r.SubjectID == subjectID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

// MarkRevoked returns sentinel.ErrInvalidState when the credential is
// already revoked; the first reason is kept.
func (s *InMemoryCredentialStore) MarkRevoked(_ context.Context, credentialID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if r.IsRevoked() {
		return sentinel.ErrInvalidState
	}
	r.Status = credential.RecordRevoked
	r.RevokedAt = &at
	r.RevocationReason = reason
	s.records[credentialID] = r
	return nil
}

func (s *InMemoryCredentialStore) ListRevokedIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for cid, r := range s.records {
		if r.IsRevoked() {
			out = append(out, cid)
		}
	}
	sort.Strings(out)
	return out, nil
}

// InMemoryProfileStore keeps one profile per user.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]credential.Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[id.UserID]credential.Profile)}
}

func (s *InMemoryProfileStore) FindByUser(_ context.Context, userID id.UserID) (*credential.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p.Skills = append([]string(nil), p.Skills...)
	return &p, nil
}

func (s *InMemoryProfileStore) Save(_ context.Context, profile *credential.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	p.Skills = append([]string(nil), profile.Skills...)
	s.profiles[profile.UserID] = p
	return nil
}
