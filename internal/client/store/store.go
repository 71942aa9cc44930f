// Package store owns the on-device SQLite database: opening it, applying
// schema migrations, and handing out the repositories bound to it. The store
// is constructed explicitly at startup and passed to its consumers; there is
// no lazily-initialized global handle.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/feltkeeper/feltkeeper/internal/client/migrations"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/cursor"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/outbox"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
	"github.com/feltkeeper/feltkeeper/internal/common"
)

// Repositories bundles the accessors that share one database handle.
type Repositories struct {
	Records records.Repository
	Outbox  outbox.Repository
	Cursor  cursor.Repository
}

// Store is the durable on-device store. Lifecycle is tied to the app
// session: Open at startup, Close on shutdown.
type Store struct {
	DB *sql.DB
	Repositories
}

// Open opens (creating if needed) the database at dsn, runs pending
// migrations, and returns the store with its repositories wired.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %v", common.ErrStorageUnavailable, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{
		DB: db,
		Repositories: Repositories{
			Records: records.NewSQLiteRepository(db),
			Outbox:  outbox.NewSQLiteRepository(db),
			Cursor:  cursor.NewSQLiteRepository(db),
		},
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
