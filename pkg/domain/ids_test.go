package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "worktrust/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestParseID_BoundaryInputs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE records;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecordID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical parsing behavior.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errUser := ParseUserID(validUUID)
		_, errRecord := ParseRecordID(validUUID)
		_, errRun := ParseRunID(validUUID)
		_, errReview := ParseReviewID(validUUID)

		require.NoError(t, errUser)
		require.NoError(t, errRecord)
		require.NoError(t, errRun)
		require.NoError(t, errReview)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errRecord := ParseRecordID(input)
			_, errRun := ParseRunID(input)
			_, errReview := ParseReviewID(input)

			require.Error(t, errUser)
			require.Error(t, errRecord)
			require.Error(t, errRun)
			require.Error(t, errReview)
		})
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
}

func TestTextRoundTrip(t *testing.T) {
	original := RecordID(uuid.New())
	text, err := original.MarshalText()
	require.NoError(t, err)

	var decoded RecordID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, original, decoded)
}
