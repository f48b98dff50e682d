package tx

import (
	"encoding/binary"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// The serialization follows the molecule layout used on chain:
//
//	table:  total_size(4) | field offsets(4*n) | fields...
//	fixvec: item_count(4) | items...
//	dynvec: total_size(4) | item offsets(4*n) | items...
//
// Options serialize to nothing when absent. All integers are little-endian.

const (
	cellInputSize = 8 + types.HashSize + 4 // since | tx_hash | index
	cellDepSize   = types.HashSize + 4 + 1 // tx_hash | index | dep_type
)

func molTable(fields ...[]byte) []byte {
	header := 4 + 4*len(fields)
	total := header
	for _, f := range fields {
		total += len(f)
	}
	buf := make([]byte, 0, total)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	off := header
	for _, f := range fields {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(off))
		off += len(f)
	}
	for _, f := range fields {
		buf = append(buf, f...)
	}
	return buf
}

// molDynVec serializes a vector of variable-size items.
func molDynVec(items [][]byte) []byte {
	if len(items) == 0 {
		return binary.LittleEndian.AppendUint32(nil, 4)
	}
	return molTable(items...)
}

// molFixVec serializes count fixed-size items already laid out in body.
func molFixVec(count int, body []byte) []byte {
	buf := make([]byte, 0, 4+len(body))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(count))
	return append(buf, body...)
}

// molBytes serializes a byte vector.
func molBytes(b []byte) []byte {
	return molFixVec(len(b), b)
}

func appendOutPoint(buf []byte, op types.OutPoint) []byte {
	buf = append(buf, op.TxHash[:]...)
	return binary.LittleEndian.AppendUint32(buf, op.Index)
}

// SerializeScript returns the canonical bytes of a script.
func SerializeScript(s types.Script) []byte {
	return molTable(s.CodeHash[:], []byte{byte(s.HashType)}, molBytes(s.Args))
}

// SerializeOutput returns the canonical bytes of a cell output.
func SerializeOutput(o types.CellOutput) []byte {
	var typ []byte
	if o.Type != nil {
		typ = SerializeScript(*o.Type)
	}
	capacity := binary.LittleEndian.AppendUint64(nil, o.Capacity)
	return molTable(capacity, SerializeScript(o.Lock), typ)
}

// RawBytes returns the serialization of the transaction without witnesses.
// The transaction hash and signing message are computed over these bytes.
func (tx *Transaction) RawBytes() []byte {
	version := binary.LittleEndian.AppendUint32(nil, tx.Version)

	deps := make([]byte, 0, cellDepSize*len(tx.CellDeps))
	for _, d := range tx.CellDeps {
		deps = appendOutPoint(deps, d.OutPoint)
		deps = append(deps, byte(d.DepType))
	}

	headers := make([]byte, 0, types.HashSize*len(tx.HeaderDeps))
	for _, h := range tx.HeaderDeps {
		headers = append(headers, h[:]...)
	}

	inputs := make([]byte, 0, cellInputSize*len(tx.Inputs))
	for _, in := range tx.Inputs {
		inputs = binary.LittleEndian.AppendUint64(inputs, in.Since)
		inputs = appendOutPoint(inputs, in.PreviousOutput)
	}

	outputs := make([][]byte, len(tx.Outputs))
	for i, o := range tx.Outputs {
		outputs[i] = SerializeOutput(o)
	}

	data := make([][]byte, len(tx.OutputsData))
	for i, d := range tx.OutputsData {
		data[i] = molBytes(d)
	}

	return molTable(
		version,
		molFixVec(len(tx.CellDeps), deps),
		molFixVec(len(tx.HeaderDeps), headers),
		molFixVec(len(tx.Inputs), inputs),
		molDynVec(outputs),
		molDynVec(data),
	)
}

// Bytes returns the full serialization: raw transaction plus witnesses.
func (tx *Transaction) Bytes() []byte {
	witnesses := make([][]byte, len(tx.Witnesses))
	for i, w := range tx.Witnesses {
		witnesses[i] = molBytes(w)
	}
	return molTable(tx.RawBytes(), molDynVec(witnesses))
}

// SerializedSize returns len(tx.Bytes()).
func SerializedSize(tx *Transaction) uint64 {
	return uint64(len(tx.Bytes()))
}
