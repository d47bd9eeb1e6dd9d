package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 3 {
		res, err := s.Allow(ctx, "verify:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := s.Allow(ctx, "verify:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter, "first hit leaves the window 30s from now")

	other, err := s.Allow(ctx, "verify:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(31 * time.Second)
	res, err = s.Allow(ctx, "verify:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Remaining)
}
