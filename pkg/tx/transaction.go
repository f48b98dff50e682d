// Package tx defines cell transactions, their canonical serialization and
// the size-based capacity and fee rules used when assembling them.
package tx

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// DepType says whether a cell dep points at code or at a group of deps.
type DepType uint8

const (
	DepTypeCode     DepType = 0x00
	DepTypeDepGroup DepType = 0x01
)

// String returns the RPC name of the dep type.
func (d DepType) String() string {
	if d == DepTypeDepGroup {
		return "dep_group"
	}
	return "code"
}

// ParseDepType parses an RPC dep type name.
func ParseDepType(s string) (DepType, error) {
	switch s {
	case "code":
		return DepTypeCode, nil
	case "dep_group":
		return DepTypeDepGroup, nil
	default:
		return 0, fmt.Errorf("unknown dep type %q", s)
	}
}

// CellDep references a cell whose data (script code) the transaction loads.
type CellDep struct {
	OutPoint types.OutPoint `json:"out_point"`
	DepType  DepType        `json:"dep_type"`
}

// CellInput references a live cell being consumed.
type CellInput struct {
	Since          uint64         `json:"since"`
	PreviousOutput types.OutPoint `json:"previous_output"`
}

// Transaction is a cell transaction. Outputs and OutputsData are positionally
// aligned, and Witnesses[i] belongs to Inputs[i].
type Transaction struct {
	Version     uint32             `json:"version"`
	CellDeps    []CellDep          `json:"cell_deps"`
	HeaderDeps  []types.Hash       `json:"header_deps"`
	Inputs      []CellInput        `json:"inputs"`
	Outputs     []types.CellOutput `json:"outputs"`
	OutputsData [][]byte           `json:"outputs_data"`
	Witnesses   [][]byte           `json:"witnesses"`
}

// Hash computes the transaction hash over the raw (witness-free) serialization.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.RawBytes())
}

// TotalOutputCapacity returns the sum of all output capacities.
// Returns an error if the sum overflows uint64.
func (tx *Transaction) TotalOutputCapacity() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Capacity {
			return 0, fmt.Errorf("output capacity overflow")
		}
		total += out.Capacity
	}
	return total, nil
}
