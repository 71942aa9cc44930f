package models

import "time"

// Bankroll returns the current bankroll in cents: net of all closed and open
// cash sessions plus the signed sum of ledger movements. Tombstoned records
// are excluded.
func Bankroll(cash []CashSession, ledger []LedgerEntry) int64 {
	var total int64
	for _, s := range cash {
		if s.Deleted() {
			continue
		}
		total += s.Net()
	}
	for _, e := range ledger {
		if e.Deleted() {
			continue
		}
		total += e.AmountCents
	}
	return total
}

// ProfitSince sums cash-session nets for sessions ending (or, while open,
// starting) after the given instant.
func ProfitSince(cash []CashSession, since time.Time) int64 {
	var total int64
	for _, s := range cash {
		if s.Deleted() {
			continue
		}
		at := s.StartTs
		if s.EndTs != nil {
			at = *s.EndTs
		}
		t, err := ParseISO(at)
		if err != nil {
			continue
		}
		if t.After(since) {
			total += s.Net()
		}
	}
	return total
}

// HourlyRateCents returns profit per hour across sessions that recorded a
// duration. Sessions without a duration are ignored. Returns 0 when no
// playing time is known.
func HourlyRateCents(cash []CashSession) int64 {
	var minutes, profit int64
	for _, s := range cash {
		if s.Deleted() || s.DurationMinutes == nil || *s.DurationMinutes == 0 {
			continue
		}
		minutes += *s.DurationMinutes
		profit += s.Net()
	}
	if minutes == 0 {
		return 0
	}
	return profit * 60 / minutes
}
