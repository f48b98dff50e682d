package rpcclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// Uint64 is a quantity encoded as 0x-prefixed hex without leading zeros.
type Uint64 uint64

// MarshalJSON implements json.Marshaler.
func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%x", uint64(u)))
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if !strings.HasPrefix(s, "0x") || len(s) == 2 {
		return fmt.Errorf("quantity %q is not 0x-prefixed hex", s)
	}
	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return fmt.Errorf("quantity %q: %w", s, err)
	}
	*u = Uint64(v)
	return nil
}

// Uint32 is a 32-bit quantity encoded like Uint64.
type Uint32 uint32

// MarshalJSON implements json.Marshaler.
func (u Uint32) MarshalJSON() ([]byte, error) {
	return Uint64(u).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint32) UnmarshalJSON(data []byte) error {
	var v Uint64
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v > 0xffffffff {
		return fmt.Errorf("quantity 0x%x overflows uint32", uint64(v))
	}
	*u = Uint32(v)
	return nil
}

// Bytes is a byte string encoded as 0x-prefixed hex.
type Bytes []byte

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(types.EncodeHex(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := types.DecodeHex(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

type outPointJSON struct {
	TxHash types.Hash `json:"tx_hash"`
	Index  Uint32     `json:"index"`
}

func toOutPointJSON(op types.OutPoint) outPointJSON {
	return outPointJSON{TxHash: op.TxHash, Index: Uint32(op.Index)}
}

func (o outPointJSON) outPoint() types.OutPoint {
	return types.OutPoint{TxHash: o.TxHash, Index: uint32(o.Index)}
}

type cellOutputJSON struct {
	Capacity Uint64        `json:"capacity"`
	Lock     types.Script  `json:"lock"`
	Type     *types.Script `json:"type"`
}

func toCellOutputJSON(o types.CellOutput) cellOutputJSON {
	return cellOutputJSON{Capacity: Uint64(o.Capacity), Lock: o.Lock, Type: o.Type}
}

func (o cellOutputJSON) cellOutput() types.CellOutput {
	return types.CellOutput{Capacity: uint64(o.Capacity), Lock: o.Lock, Type: o.Type}
}

type cellDepJSON struct {
	OutPoint outPointJSON `json:"out_point"`
	DepType  string       `json:"dep_type"`
}

type cellInputJSON struct {
	Since          Uint64       `json:"since"`
	PreviousOutput outPointJSON `json:"previous_output"`
}

// TransactionJSON is the node's JSON form of a transaction.
type TransactionJSON struct {
	Version     Uint32           `json:"version"`
	CellDeps    []cellDepJSON    `json:"cell_deps"`
	HeaderDeps  []types.Hash     `json:"header_deps"`
	Inputs      []cellInputJSON  `json:"inputs"`
	Outputs     []cellOutputJSON `json:"outputs"`
	OutputsData []Bytes          `json:"outputs_data"`
	Witnesses   []Bytes          `json:"witnesses"`
}

// EncodeTransaction converts a transaction into its JSON form.
func EncodeTransaction(t *tx.Transaction) TransactionJSON {
	j := TransactionJSON{
		Version:     Uint32(t.Version),
		CellDeps:    make([]cellDepJSON, len(t.CellDeps)),
		HeaderDeps:  append([]types.Hash{}, t.HeaderDeps...),
		Inputs:      make([]cellInputJSON, len(t.Inputs)),
		Outputs:     make([]cellOutputJSON, len(t.Outputs)),
		OutputsData: make([]Bytes, len(t.OutputsData)),
		Witnesses:   make([]Bytes, len(t.Witnesses)),
	}
	for i, d := range t.CellDeps {
		j.CellDeps[i] = cellDepJSON{OutPoint: toOutPointJSON(d.OutPoint), DepType: d.DepType.String()}
	}
	for i, in := range t.Inputs {
		j.Inputs[i] = cellInputJSON{Since: Uint64(in.Since), PreviousOutput: toOutPointJSON(in.PreviousOutput)}
	}
	for i, o := range t.Outputs {
		j.Outputs[i] = toCellOutputJSON(o)
	}
	for i, d := range t.OutputsData {
		j.OutputsData[i] = Bytes(d)
	}
	for i, w := range t.Witnesses {
		j.Witnesses[i] = Bytes(w)
	}
	return j
}

// DecodeTransaction converts the JSON form back into a transaction.
func DecodeTransaction(j TransactionJSON) (*tx.Transaction, error) {
	t := &tx.Transaction{
		Version:     uint32(j.Version),
		HeaderDeps:  append([]types.Hash{}, j.HeaderDeps...),
		OutputsData: make([][]byte, len(j.OutputsData)),
		Witnesses:   make([][]byte, len(j.Witnesses)),
	}
	for _, d := range j.CellDeps {
		depType, err := tx.ParseDepType(d.DepType)
		if err != nil {
			return nil, err
		}
		t.CellDeps = append(t.CellDeps, tx.CellDep{OutPoint: d.OutPoint.outPoint(), DepType: depType})
	}
	for _, in := range j.Inputs {
		t.Inputs = append(t.Inputs, tx.CellInput{Since: uint64(in.Since), PreviousOutput: in.PreviousOutput.outPoint()})
	}
	for _, o := range j.Outputs {
		t.Outputs = append(t.Outputs, o.cellOutput())
	}
	for i, d := range j.OutputsData {
		t.OutputsData[i] = []byte(d)
	}
	for i, w := range j.Witnesses {
		t.Witnesses[i] = []byte(w)
	}
	return t, nil
}
