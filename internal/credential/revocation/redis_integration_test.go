//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/pkg/testutil/containers"
)

func TestRedisList(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	list := NewRedisList(rc.Client)

	t.Run("revoke and lookup", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, list.Revoke(ctx, "urn:uuid:a", 0))

		revoked, err := list.IsRevoked(ctx, "urn:uuid:a")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = list.IsRevoked(ctx, "urn:uuid:b")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("ttl bounds the entry", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, list.Revoke(ctx, "urn:uuid:short", time.Hour))

		ttl, err := rc.Client.TTL(ctx, revokedCredentialKeyPrefix+"urn:uuid:short").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
	})

	t.Run("seed loads every id", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, list.Seed(ctx, []string{"urn:uuid:x", "urn:uuid:y"}))
		for _, cid := range []string{"urn:uuid:x", "urn:uuid:y"} {
			revoked, err := list.IsRevoked(ctx, cid)
			require.NoError(t, err)
			assert.True(t, revoked, cid)
		}
	})
}
