package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/common"
	"github.com/feltkeeper/feltkeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx), so an intent can be enqueued in the same transaction as the
// domain write that produced it.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, m *models.Mutation) error {
	query := `INSERT INTO sync_outbox
			(id, table_name, operation, entity_id, payload, client_ts, attempt_count, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var lastErr any
	if m.LastError != nil {
		lastErr = *m.LastError
	}
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.TableName, string(m.Operation), m.EntityID, string(m.Payload),
		m.ClientTs, m.AttemptCount, lastErr, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue intent: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

// PeekPending orders by rowid: insertion order is creation order, and unlike
// the created_at string it cannot be skewed by variable-width fraction
// encoding in the timestamps.
func (r *SQLiteRepository) PeekPending(ctx context.Context, limit int) ([]models.Mutation, error) {
	query := `SELECT id, table_name, operation, entity_id, payload, client_ts, attempt_count, last_error, created_at
		FROM sync_outbox
		ORDER BY rowid ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("peek pending: %w: %v", common.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var result []models.Mutation
	for rows.Next() {
		var m models.Mutation
		var op, payload string
		var lastErr sql.NullString
		if err := rows.Scan(&m.ID, &m.TableName, &op, &m.EntityID, &payload,
			&m.ClientTs, &m.AttemptCount, &lastErr, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Operation = models.Operation(op)
		m.Payload = []byte(payload)
		if lastErr.Valid {
			v := lastErr.String
			m.LastError = &v
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkApplied(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_outbox WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark applied: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_outbox SET attempt_count = attempt_count + 1, last_error = ? WHERE id = ?`,
		msg, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *SQLiteRepository) HasPendingFor(ctx context.Context, entityID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_outbox WHERE entity_id = ?`, entityID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("pending lookup: %w: %v", common.ErrStorageUnavailable, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_outbox`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w: %v", common.ErrStorageUnavailable, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_outbox`)
	if err != nil {
		return fmt.Errorf("clear outbox: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}
