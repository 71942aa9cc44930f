package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/common"
	"github.com/feltkeeper/feltkeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx), so the same code serves both plain reads and the transactional
// entity-plus-outbox writes.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, common.ErrStorageUnavailable, err)
}

func (r *SQLiteRepository) UpsertCashSession(ctx context.Context, s *models.CashSession) error {
	tags, err := encodeTags(s.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	query := `INSERT INTO cash_sessions (
			id, user_id, start_ts, end_ts, venue, game, sb_cents, bb_cents, buyin_cents,
			cashout_cents, tips_cents, rake_model, notes, tags, duration_minutes,
			updated_at, deleted_at, dirty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			start_ts = excluded.start_ts,
			end_ts = excluded.end_ts,
			venue = excluded.venue,
			game = excluded.game,
			sb_cents = excluded.sb_cents,
			bb_cents = excluded.bb_cents,
			buyin_cents = excluded.buyin_cents,
			cashout_cents = excluded.cashout_cents,
			tips_cents = excluded.tips_cents,
			rake_model = excluded.rake_model,
			notes = excluded.notes,
			tags = excluded.tags,
			duration_minutes = excluded.duration_minutes,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			dirty = excluded.dirty`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.StartTs, nullableStr(s.EndTs), nullableStr(s.Venue), nullableStr(s.Game),
		s.SbCents, s.BbCents, s.BuyinCents, nullableI64(s.CashoutCents), nullableI64(s.TipsCents),
		nullableStr(s.RakeModel), nullableStr(s.Notes), tags, nullableI64(s.DurationMinutes),
		s.UpdatedAt, nullableStr(s.DeletedAt), boolToInt(s.Dirty))
	if err != nil {
		return storeErr("upsert cash session", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCashSessions(ctx context.Context) ([]models.CashSession, error) {
	query := `SELECT id, user_id, start_ts, end_ts, venue, game, sb_cents, bb_cents, buyin_cents,
			cashout_cents, tips_cents, rake_model, notes, tags, duration_minutes,
			updated_at, deleted_at, dirty
		FROM cash_sessions ORDER BY start_ts DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list cash sessions", err)
	}
	defer rows.Close()

	var result []models.CashSession
	var rowErrs []error
	for rows.Next() {
		var s models.CashSession
		var endTs, venue, game, rakeModel, notes, tags, deletedAt sql.NullString
		var cashout, tips, duration sql.NullInt64
		var dirty int
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartTs, &endTs, &venue, &game,
			&s.SbCents, &s.BbCents, &s.BuyinCents, &cashout, &tips, &rakeModel,
			&notes, &tags, &duration, &s.UpdatedAt, &deletedAt, &dirty); err != nil {
			return nil, err
		}
		s.EndTs, s.Venue, s.Game = strPtr(endTs), strPtr(venue), strPtr(game)
		s.RakeModel, s.Notes = strPtr(rakeModel), strPtr(notes)
		s.CashoutCents, s.TipsCents, s.DurationMinutes = i64Ptr(cashout), i64Ptr(tips), i64Ptr(duration)
		s.DeletedAt = strPtr(deletedAt)
		s.Dirty = dirty != 0
		if s.Tags, err = decodeTags(tags); err != nil {
			rowErrs = append(rowErrs, corruptRow(models.TableCashSessions, s.ID, err))
			continue
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, errors.Join(rowErrs...)
}

func (r *SQLiteRepository) UpsertTournamentSession(ctx context.Context, s *models.TournamentSession) error {
	tags, err := encodeTags(s.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	query := `INSERT INTO mtt_sessions (
			id, user_id, start_ts, end_ts, venue, game, buyin_cents, fee_cents, reentries,
			cash_cents, bounties_cents, position, field_size, notes, tags,
			updated_at, deleted_at, dirty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			start_ts = excluded.start_ts,
			end_ts = excluded.end_ts,
			venue = excluded.venue,
			game = excluded.game,
			buyin_cents = excluded.buyin_cents,
			fee_cents = excluded.fee_cents,
			reentries = excluded.reentries,
			cash_cents = excluded.cash_cents,
			bounties_cents = excluded.bounties_cents,
			position = excluded.position,
			field_size = excluded.field_size,
			notes = excluded.notes,
			tags = excluded.tags,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			dirty = excluded.dirty`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.StartTs, nullableStr(s.EndTs), nullableStr(s.Venue), nullableStr(s.Game),
		s.BuyinCents, nullableI64(s.FeeCents), s.Reentries, nullableI64(s.CashCents),
		nullableI64(s.BountiesCents), nullableI64(s.Position), nullableI64(s.FieldSize),
		nullableStr(s.Notes), tags, s.UpdatedAt, nullableStr(s.DeletedAt), boolToInt(s.Dirty))
	if err != nil {
		return storeErr("upsert tournament session", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTournamentSessions(ctx context.Context) ([]models.TournamentSession, error) {
	query := `SELECT id, user_id, start_ts, end_ts, venue, game, buyin_cents, fee_cents, reentries,
			cash_cents, bounties_cents, position, field_size, notes, tags,
			updated_at, deleted_at, dirty
		FROM mtt_sessions ORDER BY start_ts DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list tournament sessions", err)
	}
	defer rows.Close()

	var result []models.TournamentSession
	var rowErrs []error
	for rows.Next() {
		var s models.TournamentSession
		var endTs, venue, game, notes, tags, deletedAt sql.NullString
		var fee, cash, bounties, position, fieldSize sql.NullInt64
		var dirty int
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartTs, &endTs, &venue, &game,
			&s.BuyinCents, &fee, &s.Reentries, &cash, &bounties, &position, &fieldSize,
			&notes, &tags, &s.UpdatedAt, &deletedAt, &dirty); err != nil {
			return nil, err
		}
		s.EndTs, s.Venue, s.Game, s.Notes = strPtr(endTs), strPtr(venue), strPtr(game), strPtr(notes)
		s.FeeCents, s.CashCents, s.BountiesCents = i64Ptr(fee), i64Ptr(cash), i64Ptr(bounties)
		s.Position, s.FieldSize = i64Ptr(position), i64Ptr(fieldSize)
		s.DeletedAt = strPtr(deletedAt)
		s.Dirty = dirty != 0
		if s.Tags, err = decodeTags(tags); err != nil {
			rowErrs = append(rowErrs, corruptRow(models.TableMttSessions, s.ID, err))
			continue
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, errors.Join(rowErrs...)
}

func (r *SQLiteRepository) UpsertLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (
			id, user_id, type, amount_cents, currency, occurred_at, notes,
			updated_at, deleted_at, dirty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			type = excluded.type,
			amount_cents = excluded.amount_cents,
			currency = excluded.currency,
			occurred_at = excluded.occurred_at,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			dirty = excluded.dirty`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, string(e.Type), e.AmountCents, e.Currency, e.OccurredAt,
		nullableStr(e.Notes), e.UpdatedAt, nullableStr(e.DeletedAt), boolToInt(e.Dirty))
	if err != nil {
		return storeErr("upsert ledger entry", err)
	}
	return nil
}

func (r *SQLiteRepository) ListLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	query := `SELECT id, user_id, type, amount_cents, currency, occurred_at, notes,
			updated_at, deleted_at, dirty
		FROM ledger_entries ORDER BY occurred_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list ledger entries", err)
	}
	defer rows.Close()

	var result []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var typ string
		var notes, deletedAt sql.NullString
		var dirty int
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.AmountCents, &e.Currency,
			&e.OccurredAt, &notes, &e.UpdatedAt, &deletedAt, &dirty); err != nil {
			return nil, err
		}
		e.Type = models.LedgerType(typ)
		e.Notes, e.DeletedAt = strPtr(notes), strPtr(deletedAt)
		e.Dirty = dirty != 0
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) UpsertPolicy(ctx context.Context, p *models.Policy) error {
	payload, err := encodeJSONMap(p.Payload)
	if err != nil {
		return fmt.Errorf("encode policy payload: %w", err)
	}
	if payload == nil {
		payload = "{}" // payload column is NOT NULL
	}
	query := `INSERT INTO policies (id, user_id, name, kind, payload, updated_at, deleted_at, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			kind = excluded.kind,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			dirty = excluded.dirty`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Name, string(p.Kind), payload,
		p.UpdatedAt, nullableStr(p.DeletedAt), boolToInt(p.Dirty))
	if err != nil {
		return storeErr("upsert policy", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	query := `SELECT id, user_id, name, kind, payload, updated_at, deleted_at, dirty
		FROM policies ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list policies", err)
	}
	defer rows.Close()

	var result []models.Policy
	var rowErrs []error
	for rows.Next() {
		var p models.Policy
		var kind string
		var payload, deletedAt sql.NullString
		var dirty int
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &kind, &payload,
			&p.UpdatedAt, &deletedAt, &dirty); err != nil {
			return nil, err
		}
		p.Kind = models.PolicyKind(kind)
		p.DeletedAt = strPtr(deletedAt)
		p.Dirty = dirty != 0
		if p.Payload, err = decodeJSONMap(payload); err != nil {
			rowErrs = append(rowErrs, corruptRow(models.TablePolicies, p.ID, err))
			continue
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, errors.Join(rowErrs...)
}

func (r *SQLiteRepository) UpsertSimRun(ctx context.Context, sr *models.SimRun) error {
	params, err := encodeJSONMap(sr.Params)
	if err != nil {
		return fmt.Errorf("encode sim params: %w", err)
	}
	if params == nil {
		params = "{}" // params column is NOT NULL
	}
	result, err := encodeJSONMap(sr.Result)
	if err != nil {
		return fmt.Errorf("encode sim result: %w", err)
	}
	query := `INSERT INTO sim_runs (
			id, user_id, params_hash, params, result, status, created_at,
			updated_at, deleted_at, dirty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			params_hash = excluded.params_hash,
			params = excluded.params,
			result = excluded.result,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			dirty = excluded.dirty`
	_, err = r.db.ExecContext(ctx, query,
		sr.ID, sr.UserID, sr.ParamsHash, params, result, string(sr.Status),
		sr.CreatedAt, sr.UpdatedAt, nullableStr(sr.DeletedAt), boolToInt(sr.Dirty))
	if err != nil {
		return storeErr("upsert sim run", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSimRuns(ctx context.Context) ([]models.SimRun, error) {
	query := `SELECT id, user_id, params_hash, params, result, status, created_at,
			updated_at, deleted_at, dirty
		FROM sim_runs ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list sim runs", err)
	}
	defer rows.Close()

	var result []models.SimRun
	var rowErrs []error
	for rows.Next() {
		var sr models.SimRun
		var status string
		var params, res, deletedAt sql.NullString
		var dirty int
		if err := rows.Scan(&sr.ID, &sr.UserID, &sr.ParamsHash, &params, &res, &status,
			&sr.CreatedAt, &sr.UpdatedAt, &deletedAt, &dirty); err != nil {
			return nil, err
		}
		sr.Status = models.SimStatus(status)
		sr.DeletedAt = strPtr(deletedAt)
		sr.Dirty = dirty != 0
		if sr.Params, err = decodeJSONMap(params); err != nil {
			rowErrs = append(rowErrs, corruptRow(models.TableSimRuns, sr.ID, err))
			continue
		}
		if sr.Result, err = decodeJSONMap(res); err != nil {
			rowErrs = append(rowErrs, corruptRow(models.TableSimRuns, sr.ID, err))
			continue
		}
		result = append(result, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, errors.Join(rowErrs...)
}

func (r *SQLiteRepository) UpsertAttachment(ctx context.Context, a *models.Attachment) error {
	metadata, err := encodeJSONMap(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode attachment metadata: %w", err)
	}
	query := `INSERT INTO attachments (
			id, user_id, filename, mime_type, content_uri, metadata, created_at,
			updated_at, deleted_at, upload_required, dirty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			content_uri = excluded.content_uri,
			metadata = excluded.metadata,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			upload_required = excluded.upload_required,
			dirty = excluded.dirty`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.Filename, nullableStr(a.MimeType), a.ContentUri, metadata,
		a.CreatedAt, a.UpdatedAt, nullableStr(a.DeletedAt), boolToInt(a.UploadRequired), boolToInt(a.Dirty))
	if err != nil {
		return storeErr("upsert attachment", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAttachments(ctx context.Context) ([]models.Attachment, error) {
	query := `SELECT id, user_id, filename, mime_type, content_uri, metadata, created_at,
			updated_at, deleted_at, upload_required, dirty
		FROM attachments ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list attachments", err)
	}
	defer rows.Close()

	var result []models.Attachment
	var rowErrs []error
	for rows.Next() {
		var a models.Attachment
		var mimeType, metadata, deletedAt sql.NullString
		var uploadRequired, dirty int
		if err := rows.Scan(&a.ID, &a.UserID, &a.Filename, &mimeType, &a.ContentUri,
			&metadata, &a.CreatedAt, &a.UpdatedAt, &deletedAt, &uploadRequired, &dirty); err != nil {
			return nil, err
		}
		a.MimeType, a.DeletedAt = strPtr(mimeType), strPtr(deletedAt)
		a.UploadRequired = uploadRequired != 0
		a.Dirty = dirty != 0
		if a.Metadata, err = decodeJSONMap(metadata); err != nil {
			rowErrs = append(rowErrs, corruptRow(models.TableAttachments, a.ID, err))
			continue
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, errors.Join(rowErrs...)
}
