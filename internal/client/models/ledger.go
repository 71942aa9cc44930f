package models

// LedgerType classifies a bankroll ledger movement.
type LedgerType string

const (
	LedgerDeposit    LedgerType = "deposit"
	LedgerWithdrawal LedgerType = "withdrawal"
	LedgerTransfer   LedgerType = "transfer"
	LedgerBonus      LedgerType = "bonus"
	LedgerExpense    LedgerType = "expense"
)

// LedgerEntry is a single bankroll movement outside of play.
// AmountCents is signed: withdrawals and expenses are negative.
type LedgerEntry struct {
	BaseModel

	Type        LedgerType `json:"type"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	OccurredAt  string     `json:"occurred_at"`
	Notes       *string    `json:"notes,omitempty"`
}
