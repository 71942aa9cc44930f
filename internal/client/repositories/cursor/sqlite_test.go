package cursor

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/feltkeeper/feltkeeper/internal/client/migrations"
	"github.com/pressly/goose/v3"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func TestGet_EmptyMeansFullResync(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	cur, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", cur)
}

func TestSet_ReplacesSingleRow(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "c1"))
	require.NoError(t, repo.Set(ctx, "c2"))

	cur, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c2", cur)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sync_cursor`).Scan(&n))
	assert.Equal(t, 1, n, "cursor table must stay single-row")
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "c1"))
	require.NoError(t, repo.Clear(ctx))

	cur, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", cur)
}
