package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
)

// ExportCashSessionsCSV writes cash sessions as CSV. Amounts stay in integer
// cents so the export round-trips without float drift.
func ExportCashSessionsCSV(w io.Writer, sessions []models.CashSession) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "start_ts", "end_ts", "venue", "game", "sb_cents", "bb_cents",
		"buyin_cents", "cashout_cents", "tips_cents", "net_cents",
		"duration_minutes", "tags", "notes",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export cash sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Deleted() {
			continue
		}
		row := []string{
			s.ID,
			s.StartTs,
			optStr(s.EndTs),
			optStr(s.Venue),
			optStr(s.Game),
			strconv.FormatInt(s.SbCents, 10),
			strconv.FormatInt(s.BbCents, 10),
			strconv.FormatInt(s.BuyinCents, 10),
			optI64(s.CashoutCents),
			optI64(s.TipsCents),
			strconv.FormatInt(s.Net(), 10),
			optI64(s.DurationMinutes),
			joinTags(s.Tags),
			optStr(s.Notes),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export cash sessions: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export cash sessions: %w", err)
	}
	return nil
}

// ExportTournamentSessionsCSV writes tournament sessions as CSV.
func ExportTournamentSessionsCSV(w io.Writer, sessions []models.TournamentSession) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "start_ts", "end_ts", "venue", "game", "buyin_cents", "fee_cents",
		"reentries", "cash_cents", "bounties_cents", "net_cents", "position",
		"field_size", "tags", "notes",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export tournament sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Deleted() {
			continue
		}
		row := []string{
			s.ID,
			s.StartTs,
			optStr(s.EndTs),
			optStr(s.Venue),
			optStr(s.Game),
			strconv.FormatInt(s.BuyinCents, 10),
			optI64(s.FeeCents),
			strconv.FormatInt(s.Reentries, 10),
			optI64(s.CashCents),
			optI64(s.BountiesCents),
			strconv.FormatInt(s.Net(), 10),
			optI64(s.Position),
			optI64(s.FieldSize),
			joinTags(s.Tags),
			optStr(s.Notes),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export tournament sessions: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export tournament sessions: %w", err)
	}
	return nil
}

func optStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optI64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func joinTags(tags []string) string {
	return strings.Join(tags, ";")
}
