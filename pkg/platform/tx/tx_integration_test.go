//go:build integration

package tx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txcontext "worktrust/pkg/platform/tx"
	"worktrust/pkg/testutil/containers"
)

func TestSQLRunner_CommitAndRollback(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	_, err := pg.DB.ExecContext(ctx, `CREATE TABLE tx_probe (name TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	runner := txcontext.NewSQLRunner(pg.DB)
	insert := func(ctx context.Context, name string) error {
		tx, ok := txcontext.From(ctx)
		require.True(t, ok)
		_, err := tx.ExecContext(ctx, `INSERT INTO tx_probe (name) VALUES ($1)`, name)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, pg.DB.QueryRowContext(ctx, `SELECT count(*) FROM tx_probe`).Scan(&n))
		return n
	}

	require.NoError(t, runner.RunInTx(ctx, func(ctx context.Context) error {
		return insert(ctx, "kept")
	}))
	assert.Equal(t, 1, count())

	err = runner.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, insert(ctx, "discarded"))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")
	assert.Equal(t, 1, count(), "failed unit of work rolls back")
}
