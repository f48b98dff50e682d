package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// CellSource returns the live cells matching a lock and optional type.
type CellSource interface {
	GetLiveCells(ctx context.Context, lock types.Script, typ *types.Script) ([]types.Cell, error)
}

// FilteringCollector hides cells recorded in a PendingStore from the cells
// returned by an upstream source. Order is preserved.
type FilteringCollector struct {
	source  CellSource
	pending *PendingStore
	logger  zerolog.Logger
}

// NewFilteringCollector wraps source.
func NewFilteringCollector(source CellSource, pending *PendingStore, logger zerolog.Logger) *FilteringCollector {
	return &FilteringCollector{source: source, pending: pending, logger: logger}
}

// GetLiveCells returns the upstream cells minus pending ones.
func (f *FilteringCollector) GetLiveCells(ctx context.Context, lock types.Script, typ *types.Script) ([]types.Cell, error) {
	cells, err := f.source.GetLiveCells(ctx, lock, typ)
	if err != nil {
		return nil, err
	}
	out := cells[:0:0]
	skipped := 0
	for _, c := range cells {
		pending, err := f.pending.IsPending(c.OutPoint)
		if err != nil {
			return nil, fmt.Errorf("check pending %s: %w", c.OutPoint, err)
		}
		if pending {
			skipped++
			continue
		}
		out = append(out, c)
	}
	if skipped > 0 {
		f.logger.Debug().
			Int("skipped", skipped).
			Int("live", len(out)).
			Msg("Skipped cells spent by pending transactions")
	}
	return out, nil
}

// MemoryCollector serves cells from memory with indexer semantics: a nil
// type matches every cell under the lock, a non-nil type matches exactly.
type MemoryCollector struct {
	mu    sync.RWMutex
	cells []types.Cell
}

// NewMemoryCollector creates a collector over cells, kept in the given order.
func NewMemoryCollector(cells []types.Cell) *MemoryCollector {
	return &MemoryCollector{cells: append([]types.Cell(nil), cells...)}
}

// LoadCellsFile reads a JSON array of cells, as written by the cells
// command, into a MemoryCollector.
func LoadCellsFile(path string) (*MemoryCollector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cells file: %w", err)
	}
	var cells []types.Cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, fmt.Errorf("parse cells file: %w", err)
	}
	return NewMemoryCollector(cells), nil
}

// Add appends cells.
func (m *MemoryCollector) Add(cells ...types.Cell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells = append(m.cells, cells...)
}

// GetLiveCells returns the matching cells in insertion order.
func (m *MemoryCollector) GetLiveCells(_ context.Context, lock types.Script, typ *types.Script) ([]types.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Cell
	for _, c := range m.cells {
		if !c.Output.Lock.Equal(lock) {
			continue
		}
		if typ != nil && !types.EqualOptional(c.Output.Type, typ) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
