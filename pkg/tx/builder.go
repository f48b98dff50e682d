package tx

import "github.com/Klingon-tech/xudt-tools/pkg/types"

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{
			Version:    0,
			HeaderDeps: []types.Hash{},
		},
	}
}

// AddCellDep adds a cell dep.
func (b *Builder) AddCellDep(dep CellDep) *Builder {
	b.tx.CellDeps = append(b.tx.CellDeps, dep)
	return b
}

// AddInput adds an input consuming the given live cell.
func (b *Builder) AddInput(prevOut types.OutPoint) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, CellInput{PreviousOutput: prevOut})
	return b
}

// AddOutput adds an output together with its data.
func (b *Builder) AddOutput(out types.CellOutput, data []byte) *Builder {
	if data == nil {
		data = []byte{}
	}
	b.tx.Outputs = append(b.tx.Outputs, out)
	b.tx.OutputsData = append(b.tx.OutputsData, data)
	return b
}

// AddTokenOutput adds a token-carrying output.
func (b *Builder) AddTokenOutput(capacity uint64, lock, typ types.Script, data []byte) *Builder {
	return b.AddOutput(types.CellOutput{Capacity: capacity, Lock: lock, Type: &typ}, data)
}

// AddCapacityOutput adds an output with no type script and no data.
func (b *Builder) AddCapacityOutput(capacity uint64, lock types.Script) *Builder {
	return b.AddOutput(types.CellOutput{Capacity: capacity, Lock: lock}, nil)
}

// SetPlaceholderWitnesses fills the witness list for the current inputs.
func (b *Builder) SetPlaceholderWitnesses() *Builder {
	b.tx.Witnesses = PlaceholderWitnesses(len(b.tx.Inputs))
	return b
}

// Build returns the constructed transaction.
// Does NOT validate, call tx.Validate() separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
