package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64   { return &v }
func str(v string) *string { return &v }

func cashSession(buyin, cashout int64, opts ...func(*CashSession)) CashSession {
	s := CashSession{
		BaseModel:    BaseModel{ID: "s1", UserID: "u1", UpdatedAt: NowISO()},
		StartTs:      NowISO(),
		SbCents:      100,
		BbCents:      200,
		BuyinCents:   buyin,
		CashoutCents: i64(cashout),
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func TestCashSessionNet(t *testing.T) {
	s := cashSession(20000, 25000)
	assert.Equal(t, int64(5000), s.Net())

	s.TipsCents = i64(500)
	assert.Equal(t, int64(4500), s.Net())

	open := cashSession(20000, 0)
	open.CashoutCents = nil
	assert.Equal(t, int64(-20000), open.Net(), "open session counts buy-in as a loss")
}

func TestTournamentSessionNet(t *testing.T) {
	mtt := TournamentSession{
		BaseModel:     BaseModel{ID: "m1", UserID: "u1", UpdatedAt: NowISO()},
		StartTs:       NowISO(),
		BuyinCents:    10000,
		FeeCents:      i64(1000),
		Reentries:     1,
		CashCents:     i64(50000),
		BountiesCents: i64(2500),
	}
	// two entries at 110.00 each, 525.00 back
	assert.Equal(t, int64(52500-2*11000), mtt.Net())
}

func TestBankroll(t *testing.T) {
	cash := []CashSession{
		cashSession(20000, 25000),
		cashSession(10000, 5000),
	}
	ledger := []LedgerEntry{
		{BaseModel: BaseModel{ID: "l1", UpdatedAt: NowISO()}, Type: LedgerDeposit, AmountCents: 100000, Currency: "USD", OccurredAt: NowISO()},
		{BaseModel: BaseModel{ID: "l2", UpdatedAt: NowISO()}, Type: LedgerExpense, AmountCents: -1500, Currency: "USD", OccurredAt: NowISO()},
	}
	assert.Equal(t, int64(5000-5000+100000-1500), Bankroll(cash, ledger))
}

func TestBankroll_SkipsTombstones(t *testing.T) {
	dead := cashSession(10000, 90000)
	dead.DeletedAt = str(NowISO())
	assert.Equal(t, int64(0), Bankroll([]CashSession{dead}, nil))
}

func TestProfitSince(t *testing.T) {
	old := cashSession(10000, 30000)
	oldEnd := time.Now().UTC().Add(-40 * 24 * time.Hour).Format(time.RFC3339Nano)
	old.EndTs = &oldEnd

	recent := cashSession(10000, 15000)
	recentEnd := NowISO()
	recent.EndTs = &recentEnd

	got := ProfitSince([]CashSession{old, recent}, time.Now().UTC().Add(-30*24*time.Hour))
	assert.Equal(t, int64(5000), got)
}

func TestHourlyRateCents(t *testing.T) {
	a := cashSession(10000, 16000)
	a.DurationMinutes = i64(120)
	b := cashSession(10000, 10000)
	b.DurationMinutes = i64(60)
	// 6000 profit over 3 hours
	assert.Equal(t, int64(2000), HourlyRateCents([]CashSession{a, b}))

	assert.Equal(t, int64(0), HourlyRateCents(nil))
}

func TestParseISO(t *testing.T) {
	for _, s := range []string{"2026-08-31T10:00:00Z", "2026-08-31T10:00:00.123456789Z"} {
		_, err := ParseISO(s)
		require.NoError(t, err)
	}
	_, err := ParseISO("yesterday")
	require.Error(t, err)
}
