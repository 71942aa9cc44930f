// Package common defines shared constants and sentinel errors used across
// feltkeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable means the local database could not be reached.
	// Fatal to the operation that triggered it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCorruptRecord means a single stored row failed to decode. The row is
	// skipped; listing the rest of the collection proceeds.
	ErrCorruptRecord = errors.New("corrupt record")

	// Sync-cycle errors.
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrGatewayFailure     = errors.New("gateway failure")

	// Auth errors (stale token presented to the gateway).
	ErrTokenExpired = errors.New("access token expired")
)
