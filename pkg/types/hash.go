// Package types defines the cell-model primitives shared by the xUDT tools.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value (code hashes, transaction hashes).
type Hash [HashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the 0x-prefixed hex-encoded hash.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a 0x-prefixed hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string (with or without 0x) into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash converts a hex string to a Hash. A leading "0x" is optional.
// Returns an error if the string does not decode to exactly 32 bytes.
func HexToHash(s string) (Hash, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// DecodeHex decodes a hex string with an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// EncodeHex returns b as a 0x-prefixed hex string.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
