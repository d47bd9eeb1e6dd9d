package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"worktrust/internal/platform/kafka/consumer"
	audit "worktrust/pkg/platform/audit"
)

// EventStore persists an event under a caller-chosen ID.
type EventStore interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// ComplianceHandler stores issuance and revocation events. Store failures are
// returned so the message is redelivered.
type ComplianceHandler struct {
	store  EventStore
	logger *slog.Logger
}

func NewComplianceHandler(store EventStore, logger *slog.Logger) *ComplianceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceHandler{store: store, logger: logger}
}

func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Error("CRITICAL: failed to parse compliance event ID",
			"key", string(msg.Key),
			"error", err,
		)
		// malformed messages must not block the partition
		return nil
	}

	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("CRITICAL: failed to unmarshal compliance event",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	if event.UserID.IsNil() {
		h.logger.Error("CRITICAL: compliance event missing user_id",
			"event_id", eventID,
			"action", event.Action,
		)
		return nil
	}
	event.Category = audit.CategoryCompliance
	if event.Timestamp.IsZero() {
		event.Timestamp = msg.Timestamp
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.Error("failed to store compliance event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store compliance event: %w", err)
	}

	h.logger.Debug("stored compliance event",
		"event_id", eventID,
		"action", event.Action,
		"user_id", event.UserID,
	)
	return nil
}
