package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesSchemaAndWiresRepositories(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "file:store_open_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NotNil(t, s.Records)
	require.NotNil(t, s.Outbox)
	require.NotNil(t, s.Cursor)

	for _, table := range []string{
		"cash_sessions", "mtt_sessions", "ledger_entries", "policies",
		"sim_runs", "attachments", "sync_outbox", "sync_cursor",
	} {
		var n int
		err := s.DB.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "missing table %s", table)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := "file:store_reopen_test?mode=memory&cache=shared"

	s1, err := Open(ctx, dsn)
	require.NoError(t, err)

	// second open against the same database must not fail on existing schema
	s2, err := Open(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, s2.Close())
	require.NoError(t, s1.Close())
}
