package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	"worktrust/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps records in a map. Records are copied on the way
// in and out so callers cannot mutate stored state.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[id.RecordID]verification.Record
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[id.RecordID]verification.Record)}
}

func (s *InMemoryRecordStore) FindByID(_ context.Context, recordID id.RecordID) (*verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// ListByUser returns the user's records ordered by start date.
func (s *InMemoryRecordStore) ListByUser(_ context.Context, userID id.UserID) ([]*verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*verification.Record, 0)
	for _, r := range s.records {
		if r.UserID == userID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *InMemoryRecordStore) Save(_ context.Context, record *verification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

// InMemoryStatusStore is an append-only list of verification runs.
type InMemoryStatusStore struct {
	mu       sync.RWMutex
	statuses []*verification.Status
}

func NewInMemoryStatusStore() *InMemoryStatusStore {
	return &InMemoryStatusStore{}
}

func (s *InMemoryStatusStore) Append(_ context.Context, status *verification.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.statuses {
		if existing.RunID == status.RunID {
			return sentinel.ErrConflict
		}
	}
	cp := *status
	s.statuses = append(s.statuses, &cp)
	return nil
}

// ListByRecord returns runs newest first.
func (s *InMemoryStatusStore) ListByRecord(_ context.Context, recordID id.RecordID) ([]*verification.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*verification.Status, 0)
	for i := len(s.statuses) - 1; i >= 0; i-- {
		if s.statuses[i].RecordID == recordID {
			cp := *s.statuses[i]
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VerifiedAt.After(out[j].VerifiedAt) })
	return out, nil
}

func (s *InMemoryStatusStore) ListExpired(_ context.Context, before time.Time) ([]*verification.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[id.RecordID]*verification.Status)
	order := make([]id.RecordID, 0)
	for _, st := range s.statuses {
		prev, ok := latest[st.RecordID]
		if !ok {
			order = append(order, st.RecordID)
		}
		if !ok || !st.VerifiedAt.Before(prev.VerifiedAt) {
			latest[st.RecordID] = st
		}
	}
	out := make([]*verification.Status, 0)
	for _, recordID := range order {
		st := latest[recordID]
		if st.ExpiresAt.Before(before) {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}
