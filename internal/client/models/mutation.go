package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Operation is the kind of write a mutation intent replays remotely.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Table names of the synced collections, as the remote change log knows them.
const (
	TableCashSessions  = "cash_sessions"
	TableMttSessions   = "mtt_sessions"
	TableLedgerEntries = "ledger_entries"
	TablePolicies      = "policies"
	TableSimRuns       = "sim_runs"
	TableAttachments   = "attachments"
)

// Mutation is one durable write-intent in the sync outbox. It is created in
// the same transaction as the domain write it records, pushed to the remote
// service in creation order, and deleted only once the gateway acknowledges
// it as applied. On failure only AttemptCount and LastError change.
type Mutation struct {
	ID           string          `json:"id"`
	TableName    string          `json:"table_name"`
	Operation    Operation       `json:"operation"`
	EntityID     string          `json:"entity_id"`
	Payload      json.RawMessage `json:"payload"`
	ClientTs     string          `json:"client_ts"`
	AttemptCount int             `json:"attempt_count"`
	LastError    *string         `json:"last_error,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// NewMutation builds an intent with a fresh id and the given snapshot.
// The payload must already be the full entity encoded as JSON.
func NewMutation(table string, op Operation, entityID string, payload json.RawMessage, ts string) *Mutation {
	return &Mutation{
		ID:        uuid.NewString(),
		TableName: table,
		Operation: op,
		EntityID:  entityID,
		Payload:   payload,
		ClientTs:  ts,
		CreatedAt: ts,
	}
}
