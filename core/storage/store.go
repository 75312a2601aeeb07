// Package storage provides the durable key-value state store backing
// advertisement records, channel lists, conversation state, and last-posted
// markers. Values are opaque strings; collections are serialized JSON owned
// by their callers.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrVersionConflict is returned by SetVersioned when the stored version
	// no longer matches the expected one (lost-update protection).
	ErrVersionConflict = errors.New("storage: version conflict")
)

// Store is a durable string-to-string mapping with last-write-wins semantics
// on Set and optimistic versioning on SetVersioned.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// GetVersioned returns the value and its version. A missing key yields
	// ("", 0, nil) so callers can create it with SetVersioned(key, v, 0).
	GetVersioned(ctx context.Context, key string) (string, int64, error)
	// Set writes the value unconditionally, bumping the version.
	Set(ctx context.Context, key, value string) error
	// SetVersioned writes the value only if the stored version equals expect.
	// expect == 0 means "create; key must not exist yet".
	SetVersioned(ctx context.Context, key, value string, expect int64) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
