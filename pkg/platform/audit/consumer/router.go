// Package consumer materializes audit events consumed from Kafka into the
// queryable audit store.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"worktrust/internal/platform/kafka/consumer"
	audit "worktrust/pkg/platform/audit"
	auditkafka "worktrust/pkg/platform/audit/store/kafka"
)

// CategoryHandler handles messages of one event category.
type CategoryHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches messages by the category header, falling back to the
// payload's category when the header is missing.
type Router struct {
	handlers map[audit.EventCategory]CategoryHandler
	fallback CategoryHandler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback CategoryHandler) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: make(map[audit.EventCategory]CategoryHandler),
		fallback: fallback,
		logger:   logger,
	}
}

func (r *Router) Register(category audit.EventCategory, handler CategoryHandler) {
	r.handlers[category] = handler
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	category := audit.EventCategory(msg.Headers[auditkafka.HeaderCategory])
	if category == "" {
		var peek struct {
			Category audit.EventCategory `json:"category"`
		}
		_ = json.Unmarshal(msg.Value, &peek)
		category = peek.Category
	}
	handler, ok := r.handlers[category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.Warn("no handler for audit category, skipping message",
			"category", category,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}

// NewDefaultRouter wires the compliance and ops handlers onto one store.
// Ops is also the fallback for unknown categories.
func NewDefaultRouter(store EventStore, logger *slog.Logger) *Router {
	ops := NewOpsHandler(store, logger)
	r := NewRouter(logger, ops)
	r.Register(audit.CategoryCompliance, NewComplianceHandler(store, logger))
	r.Register(audit.CategoryOperations, ops)
	return r
}
