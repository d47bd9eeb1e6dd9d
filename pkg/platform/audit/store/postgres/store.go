package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "worktrust/pkg/domain"
	audit "worktrust/pkg/platform/audit"
	txcontext "worktrust/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins the caller's transaction when one is in context, so an audit
// row commits or rolls back with the change it describes.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	return s.AppendWithID(ctx, uuid.New(), event)
}

// AppendWithID is idempotent on eventID, so a redelivered Kafka message
// lands once.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, subject, action,
			decision, reason, request_id, actor_id, client_ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		eventID,
		string(category),
		event.Timestamp,
		userID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
		event.ClientIP,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns a user's events, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, user_id, subject, action,
			   decision, reason, request_id, actor_id, client_ip, user_agent
		FROM audit_events
		WHERE user_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category       string
			event          audit.Event
			userIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&userIDNullable,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
			&event.ClientIP,
			&event.UserAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if userIDNullable != nil {
			event.UserID = id.UserID(*userIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
