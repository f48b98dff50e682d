package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// The pending index holds a few hundred small entries at most, so the
// store runs with small tables instead of Badger's server-sized defaults.
const (
	badgerMemTableSize    = 8 << 20
	badgerValueLogSize    = 16 << 20
	badgerValueThreshold  = 1 << 10
	badgerNumMemtables    = 2
	badgerBlockCacheBytes = 4 << 20
)

// BadgerDB implements DB using Badger.
type BadgerDB struct {
	db *badger.DB
}

func badgerOptions(path string) badger.Options {
	return badger.DefaultOptions(path).
		WithLogger(nil).
		WithMemTableSize(badgerMemTableSize).
		WithValueLogFileSize(badgerValueLogSize).
		WithValueThreshold(badgerValueThreshold).
		WithNumMemtables(badgerNumMemtables).
		WithBlockCacheSize(badgerBlockCacheBytes).
		WithNumVersionsToKeep(1)
}

// NewBadger opens (or creates) a Badger database at the given path. Writes
// are synced: a pending entry must survive a crash right after submission.
func NewBadger(path string) (*BadgerDB, error) {
	db, err := badger.Open(badgerOptions(path).WithSyncWrites(true))
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("pending store at %s is in use by another xudt-cli: %w", path, err)
		}
		return nil, fmt.Errorf("open pending store at %s: %w", path, err)
	}
	return &BadgerDB{db: db}, nil
}

// NewBadgerInMemory opens a Badger database that lives only in memory.
func NewBadgerInMemory() (*BadgerDB, error) {
	db, err := badger.Open(badgerOptions("").WithInMemory(true))
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &BadgerDB{db: db}, nil
}

// lookup runs fn on the item stored under key. A missing key yields
// ErrNotFound.
func (b *BadgerDB) lookup(key []byte, fn func(item *badger.Item) error) error {
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return fn(item)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// Get retrieves a value by key.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.lookup(key, func(item *badger.Item) error {
		var err error
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return val, err
}

// Has checks if a key exists.
func (b *BadgerDB) Has(key []byte) (bool, error) {
	err := b.lookup(key, func(*badger.Item) error { return nil })
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("badger has: %w", err)
	}
}

// Put stores a key-value pair.
func (b *BadgerDB) Put(key, value []byte) error {
	if err := b.db.Update(func(txn *badger.Txn) error { return txn.Set(key, value) }); err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (b *BadgerDB) Delete(key []byte) error {
	if err := b.db.Update(func(txn *badger.Txn) error { return txn.Delete(key) }); err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// ForEach calls fn for every key with the given prefix, in key order. Keys
// and values passed to fn are copies.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}

// NewBatch returns a batch backed by a Badger write batch. Nothing is
// visible until Commit.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{wb: b.db.NewWriteBatch()}
}

type badgerBatch struct {
	wb *badger.WriteBatch
}

func (bb *badgerBatch) Put(key, value []byte) error {
	return bb.wb.Set(clone(key), clone(value))
}

func (bb *badgerBatch) Delete(key []byte) error {
	return bb.wb.Delete(clone(key))
}

func (bb *badgerBatch) Commit() error {
	if err := bb.wb.Flush(); err != nil {
		return fmt.Errorf("badger batch: %w", err)
	}
	return nil
}
