package xudt

import (
	"errors"
	"fmt"
)

// AmountSize is the number of data bytes holding the amount.
const AmountSize = 16

// ErrMalformedAmount is returned when cell data carries no amount bytes.
var ErrMalformedAmount = errors.New("malformed xudt amount")

// Decode reads the little-endian amount at the head of cell data.
//
// Payloads shorter than AmountSize are read from the bytes present, so the
// missing high-order bytes count as zero. Bytes after AmountSize are
// returned as extra (nil when absent).
func Decode(data []byte) (Amount, []byte, error) {
	if len(data) == 0 {
		return Amount{}, nil, fmt.Errorf("%w: empty data", ErrMalformedAmount)
	}
	n := len(data)
	if n > AmountSize {
		n = AmountSize
	}

	// Reverse into big-endian order for SetBytes.
	var be [AmountSize]byte
	for i := 0; i < n; i++ {
		be[AmountSize-1-i] = data[i]
	}
	var a Amount
	a.v.SetBytes(be[:])

	var extra []byte
	if len(data) > AmountSize {
		extra = make([]byte, len(data)-AmountSize)
		copy(extra, data[AmountSize:])
	}
	return a, extra, nil
}

// DecodeAmount is Decode without the extension data.
func DecodeAmount(data []byte) (Amount, error) {
	a, _, err := Decode(data)
	return a, err
}

// Encode returns the 16-byte little-endian encoding of a.
func Encode(a Amount) []byte {
	be := a.v.Bytes32()
	out := make([]byte, AmountSize)
	for i := 0; i < AmountSize; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// EncodeWithExtra encodes a and appends extra verbatim.
func EncodeWithExtra(a Amount, extra []byte) []byte {
	out := Encode(a)
	return append(out, extra...)
}
