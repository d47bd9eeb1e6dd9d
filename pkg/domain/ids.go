package domain

import (
	"github.com/google/uuid"

	dErrors "worktrust/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing a
// RecordID where a UserID is expected.
type (
	UserID   uuid.UUID
	RecordID uuid.UUID
	RunID    uuid.UUID
	ReviewID uuid.UUID
)

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }
func (id RunID) String() string    { return uuid.UUID(id).String() }
func (id ReviewID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RunID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RunID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ReviewID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RunID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReviewID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewRunID returns a fresh identifier for one verification run.
func NewRunID() RunID {
	return RunID(uuid.New())
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record ID")
	return RecordID(u), err
}

func ParseRunID(s string) (RunID, error) {
	u, err := parseUUID(s, "run ID")
	return RunID(u), err
}

func ParseReviewID(s string) (ReviewID, error) {
	u, err := parseUUID(s, "review ID")
	return ReviewID(u), err
}

// parseUUID enforces the shared invariant: IDs are valid, non-nil UUIDs.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
