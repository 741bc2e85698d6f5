// Package kv abstracts the key-value medium holding persisted records.
// The session collection lives in a single named record, so implementations
// only need plain get/set/delete semantics.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the record does not exist
var ErrNotFound = errors.New("kv: record not found")

// Store is a key-value record medium
type Store interface {
	// Get returns the raw record value, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the record, replacing any existing value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the record; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Ping reports whether the medium is reachable
	Ping(ctx context.Context) error
}
