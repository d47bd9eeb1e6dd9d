package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"worktrust/internal/proof"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	"worktrust/pkg/platform/sentinel"
	txcontext "worktrust/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

// PostgresRecordStore persists records in the records table.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

const recordColumns = `
	id, user_id, kind, platform, external_id, source, connection_active,
	title, description, client, skills, start_date, end_date, earnings,
	original_hash, level, score, last_verified_at, superseded_by,
	created_at, updated_at`

func (s *PostgresRecordStore) FindByID(ctx context.Context, recordID id.RecordID) (*verification.Record, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, uuid.UUID(recordID))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

func (s *PostgresRecordStore) ListByUser(ctx context.Context, userID id.UserID) ([]*verification.Record, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE user_id = $1 ORDER BY start_date ASC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]*verification.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Save upserts the record. Content and verification fields are written together.
func (s *PostgresRecordStore) Save(ctx context.Context, r *verification.Record) error {
	client, err := marshalNullable(r.Client)
	if err != nil {
		return err
	}
	skills, err := json.Marshal(r.Skills)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	earnings, err := marshalNullable(r.Earnings)
	if err != nil {
		return err
	}
	var supersededBy *uuid.UUID
	if r.SupersededBy != nil {
		u := uuid.UUID(*r.SupersededBy)
		supersededBy = &u
	}

	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			platform = EXCLUDED.platform,
			external_id = EXCLUDED.external_id,
			source = EXCLUDED.source,
			connection_active = EXCLUDED.connection_active,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			client = EXCLUDED.client,
			skills = EXCLUDED.skills,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			earnings = EXCLUDED.earnings,
			original_hash = EXCLUDED.original_hash,
			level = EXCLUDED.level,
			score = EXCLUDED.score,
			last_verified_at = EXCLUDED.last_verified_at,
			superseded_by = EXCLUDED.superseded_by,
			updated_at = EXCLUDED.updated_at
	`
	_, err = execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		uuid.UUID(r.UserID),
		string(r.Kind),
		r.Platform,
		r.ExternalID,
		string(r.Source),
		r.ConnectionActive,
		r.Title,
		r.Description,
		client,
		skills,
		r.StartDate,
		nullTime(r.EndDate),
		earnings,
		r.OriginalHash,
		string(r.Level),
		r.Score,
		nullTime(r.LastVerifiedAt),
		supersededBy,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*verification.Record, error) {
	var (
		r                 verification.Record
		recordID, userID  uuid.UUID
		kind, source      string
		level             string
		client, skills    []byte
		earnings          []byte
		endDate, verified sql.NullTime
		supersededBy      *uuid.UUID
	)
	err := row.Scan(
		&recordID, &userID, &kind, &r.Platform, &r.ExternalID, &source, &r.ConnectionActive,
		&r.Title, &r.Description, &client, &skills, &r.StartDate, &endDate, &earnings,
		&r.OriginalHash, &level, &r.Score, &verified, &supersededBy,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.RecordID(recordID)
	r.UserID = id.UserID(userID)
	r.Kind = verification.Kind(kind)
	r.Source = verification.Source(source)
	r.Level = verification.Level(level)
	if endDate.Valid {
		t := endDate.Time
		r.EndDate = &t
	}
	if verified.Valid {
		t := verified.Time
		r.LastVerifiedAt = &t
	}
	if supersededBy != nil {
		rid := id.RecordID(*supersededBy)
		r.SupersededBy = &rid
	}
	if err := unmarshalNullable(client, &r.Client); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(skills, &r.Skills); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(earnings, &r.Earnings); err != nil {
		return nil, err
	}
	return &r, nil
}

// PostgresStatusStore persists verification runs in verification_statuses.
// Rows are only ever inserted.
type PostgresStatusStore struct {
	db *sql.DB
}

func NewPostgresStatusStore(db *sql.DB) *PostgresStatusStore {
	return &PostgresStatusStore{db: db}
}

const statusColumns = `
	run_id, record_id, user_id, level, requested_level, score, checks,
	content_hash, signature, anchor, degraded, notes, verified_at, expires_at`

func (s *PostgresStatusStore) Append(ctx context.Context, st *verification.Status) error {
	checks, err := json.Marshal(st.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}
	signature, err := marshalNullable(st.Signature)
	if err != nil {
		return err
	}
	anchor, err := marshalNullable(st.Anchor)
	if err != nil {
		return err
	}
	notes, err := json.Marshal(st.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `
		INSERT INTO verification_statuses (` + statusColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id) DO NOTHING
	`
	res, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(st.RunID),
		uuid.UUID(st.RecordID),
		uuid.UUID(st.UserID),
		string(st.Level),
		string(st.RequestedLevel),
		st.Score,
		checks,
		st.ContentHash,
		signature,
		anchor,
		st.Degraded,
		notes,
		st.VerifiedAt,
		st.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStatusStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]*verification.Status, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+statusColumns+` FROM verification_statuses WHERE record_id = $1 ORDER BY verified_at DESC`,
		uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("query verification statuses: %w", err)
	}
	defer rows.Close()
	return scanStatuses(rows)
}

func (s *PostgresStatusStore) ListExpired(ctx context.Context, before time.Time) ([]*verification.Status, error) {
	query := `
		SELECT ` + statusColumns + ` FROM (
			SELECT DISTINCT ON (record_id) *
			FROM verification_statuses
			ORDER BY record_id, verified_at DESC
		) latest
		WHERE expires_at < $1
		ORDER BY expires_at ASC
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("query expired statuses: %w", err)
	}
	defer rows.Close()
	return scanStatuses(rows)
}

func scanStatuses(rows *sql.Rows) ([]*verification.Status, error) {
	out := make([]*verification.Status, 0)
	for rows.Next() {
		var (
			st                      verification.Status
			runID, recordID, userID uuid.UUID
			level, requested        string
			checks, notes           []byte
			signature, anchor       []byte
		)
		err := rows.Scan(
			&runID, &recordID, &userID, &level, &requested, &st.Score, &checks,
			&st.ContentHash, &signature, &anchor, &st.Degraded, &notes, &st.VerifiedAt, &st.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verification status: %w", err)
		}
		st.RunID = id.RunID(runID)
		st.RecordID = id.RecordID(recordID)
		st.UserID = id.UserID(userID)
		st.Level = verification.Level(level)
		st.RequestedLevel = verification.Level(requested)
		if err := unmarshalNullable(checks, &st.Checks); err != nil {
			return nil, err
		}
		if err := unmarshalNullable(notes, &st.Notes); err != nil {
			return nil, err
		}
		var sig *proof.Proof
		if err := unmarshalNullable(signature, &sig); err != nil {
			return nil, err
		}
		st.Signature = sig
		if err := unmarshalNullable(anchor, &st.Anchor); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification statuses: %w", err)
	}
	return out, nil
}

// marshalNullable encodes v as JSON, or SQL NULL for a nil pointer.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return b, nil
}

func unmarshalNullable(b []byte, dst any) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("unmarshal %T: %w", dst, err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
