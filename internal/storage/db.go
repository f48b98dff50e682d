// Package storage provides the key-value stores behind the pending-input
// index.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage. Implementations are safe for
// concurrent use.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch collects writes that are applied together on Commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by stores that support atomic batches.
type Batcher interface {
	NewBatch() Batch
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
