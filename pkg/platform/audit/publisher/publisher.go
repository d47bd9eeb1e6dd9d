// Package publisher emits audit events to a Store, either synchronously or
// through a bounded in-process buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "worktrust/pkg/domain"
	audit "worktrust/pkg/platform/audit"
	"worktrust/pkg/platform/audit/worker"
	"worktrust/pkg/platform/middleware/metadata"
	"worktrust/pkg/requestcontext"
)

var (
	ErrBufferFull = errors.New("audit buffer full")
	ErrClosed     = errors.New("audit publisher closed")
)

// Publisher captures structured audit events. Without a buffer every Emit
// blocks until the store write returns.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	buffer     chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous mode with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.buffer, p.logger)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. Missing timestamps and categories are filled in, and
// request metadata is copied from ctx when the event does not carry it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = metadata.GetClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = metadata.GetUserAgent(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit event dropped", "action", event.Action)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops accepting events and drains the buffer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
	return nil
}
