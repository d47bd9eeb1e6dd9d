//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	now := time.Now()
	s := NewRedisStore(rc.Client)
	s.now = func() time.Time { return now }

	for i := range 3 {
		res, err := s.Allow(ctx, "verify:192.0.2.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(time.Second)
	}

	res, err := s.Allow(ctx, "verify:192.0.2.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	ttl, err := rc.Client.PTTL(ctx, keyPrefix+"verify:192.0.2.1").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	now = now.Add(time.Minute)
	res, err = s.Allow(ctx, "verify:192.0.2.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "window slid past the earlier hits")
}
