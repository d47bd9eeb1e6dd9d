package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"worktrust/internal/platform/kafka/consumer"
	audit "worktrust/pkg/platform/audit"
)

// OpsHandler stores verification activity on a best-effort basis: every
// message is committed, stored or not.
type OpsHandler struct {
	store  EventStore
	logger *slog.Logger
}

func NewOpsHandler(store EventStore, logger *slog.Logger) *OpsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsHandler{store: store, logger: logger}
}

func (h *OpsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Debug("failed to parse ops event ID",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Debug("failed to unmarshal ops event",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}
	if event.Category == "" {
		event.Category = audit.CategoryOperations
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.Debug("failed to store ops event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
	}
	return nil
}
