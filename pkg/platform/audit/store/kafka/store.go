// Package kafka ships audit events to a Kafka topic. It is write-only: the
// consumer side materializes events into the postgres store for reads.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "worktrust/pkg/domain"
	audit "worktrust/pkg/platform/audit"
	"worktrust/pkg/platform/sentinel"
)

// HeaderCategory carries the event category so consumers can route without
// decoding the payload.
const HeaderCategory = "category"

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type Store struct {
	producer Producer
	topic    string
	breaker  *breaker
}

type Option func(*Store)

// WithBreaker sets how many consecutive publish failures open the breaker
// and how long it stays open.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(s *Store) {
		s.breaker = newBreaker(threshold, cooldown)
	}
}

func New(producer Producer, topic string, opts ...Option) *Store {
	s := &Store{producer: producer, topic: topic, breaker: newBreaker(0, 0)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append keys each message by a fresh event ID, which doubles as the
// idempotency key downstream.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if !s.breaker.allow() {
		return fmt.Errorf("audit sink circuit open: %w", sentinel.ErrUnavailable)
	}
	eventID := uuid.New()
	headers := map[string]string{HeaderCategory: string(event.Category)}
	if err := s.producer.Publish(ctx, s.topic, []byte(eventID.String()), payload, headers); err != nil {
		s.breaker.failure()
		return fmt.Errorf("publish audit event: %w", err)
	}
	s.breaker.success()
	return nil
}

func (s *Store) ListByUser(_ context.Context, _ id.UserID) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit sink is write-only: %w", sentinel.ErrUnavailable)
}
