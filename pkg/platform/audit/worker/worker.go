package worker

import (
	"context"
	"log/slog"

	audit "worktrust/pkg/platform/audit"
)

// Worker drains an event channel into a store. It backs the asynchronous
// publisher mode.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run persists events until the inbox is closed. A failed append is logged
// and skipped so one bad sink write does not stall the queue.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
			w.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action,
				"user_id", event.UserID,
				"error", err,
			)
		}
	}
}
