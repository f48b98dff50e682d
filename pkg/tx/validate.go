package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs          = errors.New("transaction has no inputs")
	ErrNoOutputs         = errors.New("transaction has no outputs")
	ErrDuplicateInput    = errors.New("duplicate input")
	ErrOutputsDataLength = errors.New("outputs and outputs_data length mismatch")
	ErrWitnessCount      = errors.New("witness count does not match input count")
	ErrOutputOverflow    = errors.New("output capacities overflow")
	ErrCapacityTooSmall  = errors.New("output capacity below occupied size")
)

// Validate checks transaction structure and the occupied-capacity rule for
// every output. It does not check that inputs are live.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Outputs) != len(tx.OutputsData) {
		return fmt.Errorf("%w: %d outputs, %d data", ErrOutputsDataLength, len(tx.Outputs), len(tx.OutputsData))
	}
	if len(tx.Witnesses) != len(tx.Inputs) {
		return fmt.Errorf("%w: %d witnesses, %d inputs", ErrWitnessCount, len(tx.Witnesses), len(tx.Inputs))
	}

	seen := make(map[types.OutPoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in.PreviousOutput] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PreviousOutput] = true
	}

	var total uint64
	for i, out := range tx.Outputs {
		if need := MinCapacity(out.Lock, out.Type, len(tx.OutputsData[i])); out.Capacity < need {
			return fmt.Errorf("output %d: %w: %d < %d", i, ErrCapacityTooSmall, out.Capacity, need)
		}
		if total > math.MaxUint64-out.Capacity {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Capacity
	}
	return nil
}
