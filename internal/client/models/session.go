package models

// GameType classifies the poker variants recorded for a session.
type GameType string

const (
	GameNLH   GameType = "NLH"
	GamePLO   GameType = "PLO"
	GameMix   GameType = "MIX"
	GameOther GameType = "OTHER"
)

// CashSession is a single cash-game sitting.
type CashSession struct {
	BaseModel

	StartTs         string   `json:"start_ts"`
	EndTs           *string  `json:"end_ts,omitempty"`
	Venue           *string  `json:"venue,omitempty"`
	Game            *string  `json:"game,omitempty"`
	SbCents         int64    `json:"sb_cents"`
	BbCents         int64    `json:"bb_cents"`
	BuyinCents      int64    `json:"buyin_cents"`
	CashoutCents    *int64   `json:"cashout_cents,omitempty"`
	TipsCents       *int64   `json:"tips_cents,omitempty"`
	RakeModel       *string  `json:"rake_model,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	DurationMinutes *int64   `json:"duration_minutes,omitempty"`
}

// Net returns cashout minus buy-in minus tips, in cents. An open session
// (no cashout yet) counts its full buy-in as a loss.
func (s CashSession) Net() int64 {
	var cashout, tips int64
	if s.CashoutCents != nil {
		cashout = *s.CashoutCents
	}
	if s.TipsCents != nil {
		tips = *s.TipsCents
	}
	return cashout - s.BuyinCents - tips
}

// TournamentSession is a multi-table tournament result. The store table is
// named mtt_sessions for compatibility with the remote change log.
type TournamentSession struct {
	BaseModel

	StartTs       string   `json:"start_ts"`
	EndTs         *string  `json:"end_ts,omitempty"`
	Venue         *string  `json:"venue,omitempty"`
	Game          *string  `json:"game,omitempty"`
	BuyinCents    int64    `json:"buyin_cents"`
	FeeCents      *int64   `json:"fee_cents,omitempty"`
	Reentries     int64    `json:"reentries"`
	CashCents     *int64   `json:"cash_cents,omitempty"`
	BountiesCents *int64   `json:"bounties_cents,omitempty"`
	Position      *int64   `json:"position,omitempty"`
	FieldSize     *int64   `json:"field_size,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Net returns winnings plus bounties minus every buy-in and fee, in cents.
// Re-entries multiply the buy-in and fee cost.
func (s TournamentSession) Net() int64 {
	var cash, bounties, fee int64
	if s.CashCents != nil {
		cash = *s.CashCents
	}
	if s.BountiesCents != nil {
		bounties = *s.BountiesCents
	}
	if s.FeeCents != nil {
		fee = *s.FeeCents
	}
	entries := s.Reentries + 1
	return cash + bounties - entries*(s.BuyinCents+fee)
}
