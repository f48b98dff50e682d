package wallet

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

var testToken = types.Script{
	CodeHash: types.Hash{0x25},
	HashType: types.HashTypeType,
	Args:     bytes.Repeat([]byte{0xd2}, 32),
}

var otherToken = types.Script{
	CodeHash: types.Hash{0x25},
	HashType: types.HashTypeType,
	Args:     bytes.Repeat([]byte{0xee}, 32),
}

func testLock(b byte) types.Script {
	return types.Script{
		CodeHash: types.Hash{0x9b},
		HashType: types.HashTypeType,
		Args:     bytes.Repeat([]byte{b}, 20),
	}
}

func ckb(n uint64) uint64 { return n * tx.ShannonsPerCKB }

func tokenCell(id byte, lock types.Script, amount, capacityCKB uint64) types.Cell {
	typ := testToken
	return types.Cell{
		OutPoint: types.OutPoint{TxHash: types.Hash{0xa0, id}},
		Output:   types.CellOutput{Capacity: ckb(capacityCKB), Lock: lock, Type: &typ},
		Data:     xudt.Encode(xudt.NewAmount(amount)),
	}
}

func capacityCell(id byte, lock types.Script, capacityCKB uint64) types.Cell {
	return types.Cell{
		OutPoint: types.OutPoint{TxHash: types.Hash{0xc0, id}},
		Output:   types.CellOutput{Capacity: ckb(capacityCKB), Lock: lock},
	}
}

// memCollector answers queries the way an indexer does: a nil type returns
// every cell under the lock. With prefixType set, a type query matches any
// typed cell whose args start with the queried args.
type memCollector struct {
	mu         sync.Mutex
	cells      []types.Cell
	err        error
	prefixType bool
	typedHits  int
	plainHits  int
}

func (m *memCollector) typeMatches(have, want *types.Script) bool {
	if !m.prefixType {
		return types.EqualOptional(have, want)
	}
	return have != nil && have.CodeHash == want.CodeHash &&
		have.HashType == want.HashType && bytes.HasPrefix(have.Args, want.Args)
}

func (m *memCollector) GetLiveCells(_ context.Context, lock types.Script, typ *types.Script) ([]types.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if typ == nil {
		m.plainHits++
	} else {
		m.typedHits++
	}
	if m.err != nil {
		return nil, m.err
	}
	var out []types.Cell
	for _, c := range m.cells {
		if !c.Output.Lock.Equal(lock) {
			continue
		}
		if typ != nil && !m.typeMatches(c.Output.Type, typ) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type mapResolver map[string]types.Script

func (r mapResolver) ScriptFromAddress(addr string) (types.Script, error) {
	s, ok := r[addr]
	if !ok {
		return types.Script{}, fmt.Errorf("unknown address %q", addr)
	}
	return s, nil
}

func testAssembler(collector CellCollector) *Assembler {
	return NewAssembler(AssemblerConfig{
		Token: testToken,
		CellDeps: []tx.CellDep{
			{OutPoint: types.OutPoint{TxHash: types.Hash{0xf8}}, DepType: tx.DepTypeDepGroup},
			{OutPoint: types.OutPoint{TxHash: types.Hash{0xf9}}, DepType: tx.DepTypeCode},
		},
		UDTCellBufferCKB: DefaultUDTCellBufferCKB,
		Fee:              DefaultFeeConfig(),
	}, collector, zerolog.Nop())
}
