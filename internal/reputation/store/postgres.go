package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"worktrust/internal/fraud"
	id "worktrust/pkg/domain"
	txcontext "worktrust/pkg/platform/tx"
)

// PostgresReviewStore persists reviews in the reviews table.
type PostgresReviewStore struct {
	db *sql.DB
}

func NewPostgresReviewStore(db *sql.DB) *PostgresReviewStore {
	return &PostgresReviewStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresReviewStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresReviewStore) ListByUser(ctx context.Context, userID id.UserID) ([]*fraud.Review, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, platform, platform_verified, rating, content,
			reviewer_name, reviewer_external_id, reviewer_verified,
			project_id, project_verified, project_completed_at, reviewed_at
		FROM reviews
		WHERE user_id = $1
		ORDER BY reviewed_at ASC
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	out := make([]*fraud.Review, 0)
	for rows.Next() {
		var (
			r                  fraud.Review
			reviewID, ownerID  uuid.UUID
			projectID          *uuid.UUID
			projectCompletedAt sql.NullTime
		)
		if err := rows.Scan(
			&reviewID, &ownerID, &r.Platform, &r.PlatformVerified, &r.Rating, &r.Content,
			&r.ReviewerName, &r.ReviewerExternalID, &r.ReviewerVerified,
			&projectID, &r.ProjectVerified, &projectCompletedAt, &r.ReviewedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.ID = id.ReviewID(reviewID)
		r.UserID = id.UserID(ownerID)
		if projectID != nil {
			pid := id.RecordID(*projectID)
			r.ProjectID = &pid
		}
		if projectCompletedAt.Valid {
			t := projectCompletedAt.Time
			r.ProjectCompletedAt = &t
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

func (s *PostgresReviewStore) Save(ctx context.Context, r *fraud.Review) error {
	var projectID *uuid.UUID
	if r.ProjectID != nil {
		u := uuid.UUID(*r.ProjectID)
		projectID = &u
	}
	var completed sql.NullTime
	if r.ProjectCompletedAt != nil {
		completed = sql.NullTime{Time: *r.ProjectCompletedAt, Valid: true}
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO reviews (
			id, user_id, platform, platform_verified, rating, content,
			reviewer_name, reviewer_external_id, reviewer_verified,
			project_id, project_verified, project_completed_at, reviewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			platform_verified = EXCLUDED.platform_verified,
			rating = EXCLUDED.rating,
			content = EXCLUDED.content,
			reviewer_name = EXCLUDED.reviewer_name,
			reviewer_external_id = EXCLUDED.reviewer_external_id,
			reviewer_verified = EXCLUDED.reviewer_verified,
			project_id = EXCLUDED.project_id,
			project_verified = EXCLUDED.project_verified,
			project_completed_at = EXCLUDED.project_completed_at
	`,
		uuid.UUID(r.ID), uuid.UUID(r.UserID), r.Platform, r.PlatformVerified, r.Rating, r.Content,
		r.ReviewerName, r.ReviewerExternalID, r.ReviewerVerified,
		projectID, r.ProjectVerified, completed, r.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}
