// Package indexer filters and caches live cells between the RPC indexer and
// the transfer assembler.
package indexer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Klingon-tech/xudt-tools/internal/storage"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// Key prefixes for the pending store.
var (
	prefixPending = []byte("p/") // p/<txhash><index> -> PendingEntry JSON
	prefixSpender = []byte("s/") // s/<spender><txhash><index> -> empty
)

// PendingEntry records an input consumed by a submitted transaction that the
// indexer may still report as live.
type PendingEntry struct {
	OutPoint  types.OutPoint `json:"out_point"`
	SpentBy   types.Hash     `json:"spent_by"`
	CreatedAt time.Time      `json:"created_at"`
}

// PendingStore tracks outpoints spent by transactions that are not yet
// committed, so a second run does not select them again.
type PendingStore struct {
	db storage.DB
}

// NewPendingStore creates a pending store backed by db.
func NewPendingStore(db storage.DB) *PendingStore {
	return &PendingStore{db: db}
}

const outPointKeySize = types.HashSize + 4

func appendOutPoint(key []byte, op types.OutPoint) []byte {
	key = append(key, op.TxHash[:]...)
	return binary.BigEndian.AppendUint32(key, op.Index)
}

// pendingKey builds "p/" + txhash(32) + index(4).
func pendingKey(op types.OutPoint) []byte {
	key := make([]byte, 0, len(prefixPending)+outPointKeySize)
	key = append(key, prefixPending...)
	return appendOutPoint(key, op)
}

// spenderKey builds "s/" + spender(32) + txhash(32) + index(4).
func spenderKey(spender types.Hash, op types.OutPoint) []byte {
	key := make([]byte, 0, len(prefixSpender)+types.HashSize+outPointKeySize)
	key = append(key, prefixSpender...)
	key = append(key, spender[:]...)
	return appendOutPoint(key, op)
}

func decodeOutPoint(b []byte) (types.OutPoint, error) {
	if len(b) != outPointKeySize {
		return types.OutPoint{}, fmt.Errorf("outpoint key has %d bytes, want %d", len(b), outPointKeySize)
	}
	var op types.OutPoint
	copy(op.TxHash[:], b[:types.HashSize])
	op.Index = binary.BigEndian.Uint32(b[types.HashSize:])
	return op, nil
}

// MarkSpent records every outpoint in inputs as spent by the transaction
// spender. All records are written in one batch when the store supports it.
func (s *PendingStore) MarkSpent(spender types.Hash, inputs []types.OutPoint, now time.Time) error {
	batch := s.newBatch()
	for _, op := range inputs {
		data, err := json.Marshal(PendingEntry{OutPoint: op, SpentBy: spender, CreatedAt: now.UTC()})
		if err != nil {
			return fmt.Errorf("pending marshal: %w", err)
		}
		if err := batch.Put(pendingKey(op), data); err != nil {
			return fmt.Errorf("pending put: %w", err)
		}
		if err := batch.Put(spenderKey(spender, op), []byte{}); err != nil {
			return fmt.Errorf("pending index put: %w", err)
		}
	}
	return batch.Commit()
}

// IsPending reports whether op was spent by a recorded transaction.
func (s *PendingStore) IsPending(op types.OutPoint) (bool, error) {
	return s.db.Has(pendingKey(op))
}

// Get returns the pending record of op.
func (s *PendingStore) Get(op types.OutPoint) (*PendingEntry, error) {
	data, err := s.db.Get(pendingKey(op))
	if err != nil {
		return nil, fmt.Errorf("pending get %s: %w", op, err)
	}
	var e PendingEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("pending unmarshal: %w", err)
	}
	return &e, nil
}

// Release forgets every input recorded for spender, e.g. once the
// transaction is committed or was rejected. It returns the number released.
func (s *PendingStore) Release(spender types.Hash) (int, error) {
	prefix := append(append([]byte{}, prefixSpender...), spender[:]...)
	var ops []types.OutPoint
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		op, err := decodeOutPoint(key[len(prefix):])
		if err != nil {
			return err
		}
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pending scan: %w", err)
	}

	batch := s.newBatch()
	for _, op := range ops {
		if err := batch.Delete(pendingKey(op)); err != nil {
			return 0, err
		}
		if err := batch.Delete(spenderKey(spender, op)); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("pending release: %w", err)
	}
	return len(ops), nil
}

// List returns every pending record in key order.
func (s *PendingStore) List() ([]PendingEntry, error) {
	var out []PendingEntry
	err := s.db.ForEach(prefixPending, func(_, value []byte) error {
		var e PendingEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("pending unmarshal: %w", err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Prune releases every transaction whose records are older than cutoff and
// returns the number of inputs released.
func (s *PendingStore) Prune(cutoff time.Time) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	stale := make(map[types.Hash]bool)
	for _, e := range entries {
		if e.CreatedAt.Before(cutoff) {
			stale[e.SpentBy] = true
		}
	}
	total := 0
	for spender := range stale {
		n, err := s.Release(spender)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *PendingStore) newBatch() storage.Batch {
	if b, ok := s.db.(storage.Batcher); ok {
		return b.NewBatch()
	}
	return storage.NewPrefixDB(s.db, nil).NewBatch()
}
