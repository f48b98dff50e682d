package wallet

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

// Selection holds the cells chosen by one selection pass.
type Selection struct {
	Cells    []types.Cell // Selected cells, in pool order.
	Capacity uint64       // Sum of selected capacities.
	Amount   xudt.Amount  // Sum of selected token amounts (zero for capacity passes).
}

// OutPoints returns the outpoints of the selected cells.
func (s *Selection) OutPoints() []types.OutPoint {
	ops := make([]types.OutPoint, len(s.Cells))
	for i, c := range s.Cells {
		ops[i] = c.OutPoint
	}
	return ops
}

// SelectTokenCells walks cells in the order given, skipping cells that do not
// carry the token type, and accumulates them until their token amount covers
// need. The pool is never reordered, so the result is always a prefix of the
// filtered pool.
func SelectTokenCells(cells []types.Cell, token types.Script, need xudt.Amount) (*Selection, error) {
	sel := &Selection{}
	candidates := 0
	for _, c := range cells {
		if c.Output.Type == nil || !c.Output.Type.Equal(token) {
			continue
		}
		candidates++
		amount, err := xudt.DecodeAmount(c.Data)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", c.OutPoint, err)
		}
		if sel.Capacity > math.MaxUint64-c.Output.Capacity {
			return nil, ErrCapacityOverflow
		}
		if sel.Amount, err = sel.Amount.Add(amount); err != nil {
			return nil, fmt.Errorf("cell %s: %w", c.OutPoint, err)
		}
		sel.Cells = append(sel.Cells, c)
		sel.Capacity += c.Output.Capacity
		if !sel.Amount.Lt(need) {
			return sel, nil
		}
	}
	if candidates == 0 {
		return nil, ErrNoTokenCells
	}
	return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientTokenBalance, sel.Amount, need)
}

// SelectCapacityCells walks cells in the order given, skipping any cell that
// carries a type script, and accumulates capacity until it reaches
// need + reserve. The reserve covers the change floor and the fee ceiling.
func SelectCapacityCells(cells []types.Cell, need, reserve uint64) (*Selection, error) {
	if need > math.MaxUint64-reserve {
		return nil, ErrCapacityOverflow
	}
	target := need + reserve

	sel := &Selection{}
	candidates := 0
	for _, c := range cells {
		if c.Output.HasType() {
			continue
		}
		candidates++
		if sel.Capacity > math.MaxUint64-c.Output.Capacity {
			return nil, ErrCapacityOverflow
		}
		sel.Cells = append(sel.Cells, c)
		sel.Capacity += c.Output.Capacity
		if sel.Capacity >= target {
			return sel, nil
		}
	}
	if candidates == 0 {
		return nil, ErrNoCapacityCells
	}
	return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCapacity, sel.Capacity, target)
}
