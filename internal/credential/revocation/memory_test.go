package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/pkg/requestcontext"
)

func TestInMemoryList(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	l := NewInMemoryList()

	require.NoError(t, l.Revoke(ctx, "urn:uuid:forever", 0))
	require.NoError(t, l.Revoke(ctx, "urn:uuid:day", 24*time.Hour))
	require.NoError(t, l.Seed(ctx, []string{"urn:uuid:seeded"}))

	for _, cid := range []string{"urn:uuid:forever", "urn:uuid:day", "urn:uuid:seeded"} {
		revoked, err := l.IsRevoked(ctx, cid)
		require.NoError(t, err)
		assert.True(t, revoked, cid)
	}

	later := requestcontext.WithTime(ctx, now.Add(48*time.Hour))
	revoked, err := l.IsRevoked(later, "urn:uuid:day")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = l.IsRevoked(later, "urn:uuid:forever")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = l.IsRevoked(ctx, "urn:uuid:unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}
