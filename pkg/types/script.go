package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HashType selects how a script's CodeHash is matched against cell deps.
type HashType uint8

const (
	HashTypeData  HashType = 0x00 // Match the blake hash of the dep's data
	HashTypeType  HashType = 0x01 // Match the dep's type script hash
	HashTypeData1 HashType = 0x02 // Data match, VM version 1
	HashTypeData2 HashType = 0x04 // Data match, VM version 2
)

// String returns the RPC name of the hash type.
func (ht HashType) String() string {
	switch ht {
	case HashTypeData:
		return "data"
	case HashTypeType:
		return "type"
	case HashTypeData1:
		return "data1"
	case HashTypeData2:
		return "data2"
	default:
		return "unknown"
	}
}

// ParseHashType parses an RPC hash type name.
func ParseHashType(s string) (HashType, error) {
	switch s {
	case "data":
		return HashTypeData, nil
	case "type":
		return HashTypeType, nil
	case "data1":
		return HashTypeData1, nil
	case "data2":
		return HashTypeData2, nil
	default:
		return 0, fmt.Errorf("unknown hash type %q", s)
	}
}

// MarshalJSON encodes the hash type by name.
func (ht HashType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ht.String())
}

// UnmarshalJSON decodes a hash type name.
func (ht *HashType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHashType(s)
	if err != nil {
		return err
	}
	*ht = parsed
	return nil
}

// Script identifies a lock (ownership predicate) or type (validation predicate).
type Script struct {
	CodeHash Hash     `json:"code_hash"`
	HashType HashType `json:"hash_type"`
	Args     []byte   `json:"args"`
}

// scriptJSON is the JSON representation of a Script with hex-encoded args.
type scriptJSON struct {
	CodeHash Hash     `json:"code_hash"`
	HashType HashType `json:"hash_type"`
	Args     string   `json:"args"`
}

// Equal reports whether two scripts match on all three fields.
func (s Script) Equal(o Script) bool {
	return s.CodeHash == o.CodeHash && s.HashType == o.HashType && bytes.Equal(s.Args, o.Args)
}

// OccupiedSize returns the number of bytes the script occupies in a cell:
// code_hash(32) + hash_type(1) + args.
func (s Script) OccupiedSize() int {
	return HashSize + 1 + len(s.Args)
}

// String returns a compact description for logs.
func (s Script) String() string {
	return fmt.Sprintf("%s/%s/%s", s.CodeHash, s.HashType, EncodeHex(s.Args))
}

// MarshalJSON encodes the script with hex-encoded args.
func (s Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{
		CodeHash: s.CodeHash,
		HashType: s.HashType,
		Args:     EncodeHex(s.Args),
	})
}

// UnmarshalJSON decodes a script with hex-encoded args.
func (s *Script) UnmarshalJSON(data []byte) error {
	var j scriptJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.CodeHash = j.CodeHash
	s.HashType = j.HashType
	s.Args = nil
	if j.Args != "" && j.Args != "0x" {
		b, err := DecodeHex(j.Args)
		if err != nil {
			return err
		}
		s.Args = b
	}
	return nil
}

// EqualOptional compares two optional scripts. Two nil scripts are equal.
func EqualOptional(a, b *Script) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
