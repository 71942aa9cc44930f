package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/feltkeeper/feltkeeper/internal/common"
	"github.com/feltkeeper/feltkeeper/internal/dbx"
)

// SQLiteRepository stores the cursor in the fixed id=0 row of sync_cursor.
// The schema CHECK constraint keeps the table single-row by construction.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (string, error) {
	var cur sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT cursor FROM sync_cursor WHERE id = 0`).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor: %w: %v", common.ErrStorageUnavailable, err)
	}
	return cur.String, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, cursor string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO sync_cursor (id, cursor) VALUES (0, ?)`, cursor)
	if err != nil {
		return fmt.Errorf("set cursor: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_cursor WHERE id = 0`)
	if err != nil {
		return fmt.Errorf("clear cursor: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}
