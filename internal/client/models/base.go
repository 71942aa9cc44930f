// Package models defines the client-side domain records persisted in the
// local store and exchanged with the remote sync service.
//
// Timestamps are stored as RFC 3339 strings so they survive the SQLite TEXT
// columns and the JSON outbox payloads without precision drift. Monetary
// amounts are integer minor-currency units (cents).
package models

import "time"

// BaseModel carries the columns shared by every synced record.
//
// ID is assigned once, client-side, at creation and never reassigned; it is
// the join key between the local store, outbox payloads and remote records.
// A non-nil DeletedAt marks a tombstone: the row is retained so the deletion
// propagates through sync. Dirty is true while a local write has not yet been
// confirmed pushed.
type BaseModel struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"deleted_at,omitempty"`
	Dirty     bool    `json:"dirty"`
}

// EntityID returns the record identifier. It lets generic collection code
// address any embedded model uniformly.
func (b BaseModel) EntityID() string { return b.ID }

// Deleted reports whether the record is a tombstone.
func (b BaseModel) Deleted() bool { return b.DeletedAt != nil }

// NowISO returns the current UTC time in the canonical timestamp encoding.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// ParseISO parses a canonical timestamp. Plain RFC 3339 (no fraction) is
// accepted too, since remote records are not guaranteed to carry nanoseconds.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
