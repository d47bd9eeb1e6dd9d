package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd_RejectsBadSchedule(t *testing.T) {
	s := New(testLogger())
	err := s.Add("sweep", "every tuesday", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")
}

func TestScheduler_RunsJobUntilStopped(t *testing.T) {
	s := New(testLogger())
	ran := make(chan struct{}, 10)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		ran <- struct{}{}
		return errors.New("failures are logged, not fatal")
	}))

	s.Start()
	s.Start()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	s.Stop()
	s.Stop()
}

func TestStop_CancelsJobContext(t *testing.T) {
	s := New(testLogger())
	started := make(chan struct{})
	finished := make(chan error, 1)
	require.NoError(t, s.Add("slow", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}
	s.Stop()

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled")
	}
}
