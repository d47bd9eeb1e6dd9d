package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"worktrust/internal/credential"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	"worktrust/pkg/platform/sentinel"
	txcontext "worktrust/pkg/platform/tx"
)

// uniqueViolation is the postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

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

// PostgresCredentialStore persists issued credentials in the credentials table.
type PostgresCredentialStore struct {
	db *sql.DB
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

const credentialColumns = `
	id, type, subject_id, level, status, content_hash, document,
	issued_at, expires_at, revoked_at, revocation_reason`

func (s *PostgresCredentialStore) Save(ctx context.Context, record *credential.Record) error {
	doc, err := json.Marshal(record.Credential)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	_, err = execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID,
		string(record.Type),
		uuid.UUID(record.SubjectID),
		string(record.Level),
		string(record.Status),
		record.ContentHash,
		doc,
		record.IssuedAt,
		nullTime(record.ExpiresAt),
		nullTime(record.RevokedAt),
		record.RevocationReason,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) FindByID(ctx context.Context, credentialID string) (*credential.Record, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, credentialID)
	r, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return r, nil
}

func (s *PostgresCredentialStore) ListBySubject(ctx context.Context, subjectID id.UserID) ([]*credential.Record, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE subject_id = $1 ORDER BY issued_at DESC, id ASC`,
		uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	out := make([]*credential.Record, 0)
	for rows.Next() {
		r, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

// MarkRevoked only transitions active rows, so the first revocation wins.
func (s *PostgresCredentialStore) MarkRevoked(ctx context.Context, credentialID, reason string, at time.Time) error {
	exec := execer(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE credentials
		SET status = $2, revoked_at = $3, revocation_reason = $4
		WHERE id = $1 AND status = $5`,
		credentialID, string(credential.RecordRevoked), at, reason, string(credential.RecordActive))
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = exec.QueryRowContext(ctx, `SELECT status FROM credentials WHERE id = $1`, credentialID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load credential status: %w", err)
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresCredentialStore) ListRevokedIDs(ctx context.Context) ([]string, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM credentials WHERE status = $1 ORDER BY id`, string(credential.RecordRevoked))
	if err != nil {
		return nil, fmt.Errorf("query revoked credentials: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scan revoked credential: %w", err)
		}
		out = append(out, cid)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*credential.Record, error) {
	var (
		r         credential.Record
		typ       string
		subjectID uuid.UUID
		level     string
		status    string
		doc       []byte
		expiresAt sql.NullTime
		revokedAt sql.NullTime
	)
	if err := row.Scan(
		&r.ID, &typ, &subjectID, &level, &status, &r.ContentHash, &doc,
		&r.IssuedAt, &expiresAt, &revokedAt, &r.RevocationReason,
	); err != nil {
		return nil, err
	}
	r.Type = credential.Type(typ)
	r.SubjectID = id.UserID(subjectID)
	r.Level = verification.Level(level)
	r.Status = credential.RecordStatus(status)
	r.Credential = &credential.VerifiableCredential{}
	if err := json.Unmarshal(doc, r.Credential); err != nil {
		return nil, fmt.Errorf("unmarshal credential document: %w", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		r.ExpiresAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		r.RevokedAt = &t
	}
	return &r, nil
}

// PostgresProfileStore persists self-described profiles.
type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) FindByUser(ctx context.Context, userID id.UserID) (*credential.Profile, error) {
	var (
		p      credential.Profile
		skills pq.StringArray
	)
	err := execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT name, headline, bio, photo_url, location, skills
		FROM profiles WHERE user_id = $1`, uuid.UUID(userID),
	).Scan(&p.Name, &p.Headline, &p.Bio, &p.PhotoURL, &p.Location, &skills)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.UserID = userID
	p.Skills = []string(skills)
	return &p, nil
}

func (s *PostgresProfileStore) Save(ctx context.Context, profile *credential.Profile) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, headline, bio, photo_url, location, skills, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			headline = EXCLUDED.headline,
			bio = EXCLUDED.bio,
			photo_url = EXCLUDED.photo_url,
			location = EXCLUDED.location,
			skills = EXCLUDED.skills,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(profile.UserID),
		profile.Name,
		profile.Headline,
		profile.Bio,
		profile.PhotoURL,
		profile.Location,
		pq.Array(profile.Skills),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
