// Package address converts between bech32 addresses and lock scripts.
package address

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// Address HRPs.
const (
	MainnetHRP = "ckb"
	TestnetHRP = "ckt"
)

// Payload format bytes.
const (
	FormatFull  byte = 0x00 // code_hash | hash_type | args, bech32m
	FormatShort byte = 0x01 // code_hash_index | args, bech32 (deprecated)
)

// ErrWrongNetwork is returned when an address HRP does not match the codec.
var ErrWrongNetwork = errors.New("address belongs to a different network")

// Codec encodes and decodes addresses for one network.
type Codec struct {
	hrp string
	// shortLock is the script short-format index 0 expands to.
	shortLock types.Script
}

// NewCodec creates a codec for hrp. defaultLock supplies the code hash and
// hash type that short-format index 0x00 refers to.
func NewCodec(hrp string, defaultLock types.Script) *Codec {
	return &Codec{hrp: hrp, shortLock: defaultLock}
}

// HRP returns the codec's human-readable part.
func (c *Codec) HRP() string {
	return c.hrp
}

// Encode returns the full-format address of lock.
func (c *Codec) Encode(lock types.Script) (string, error) {
	payload := make([]byte, 0, 1+types.HashSize+1+len(lock.Args))
	payload = append(payload, FormatFull)
	payload = append(payload, lock.CodeHash[:]...)
	payload = append(payload, byte(lock.HashType))
	payload = append(payload, lock.Args...)
	return encode(c.hrp, payload, Bech32m)
}

// ScriptFromAddress decodes addr into its lock script.
func (c *Codec) ScriptFromAddress(addr string) (types.Script, error) {
	hrp, payload, enc, err := decode(addr)
	if err != nil {
		return types.Script{}, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if hrp != c.hrp {
		return types.Script{}, fmt.Errorf("%w: got %q, want %q", ErrWrongNetwork, hrp, c.hrp)
	}
	if len(payload) == 0 {
		return types.Script{}, fmt.Errorf("invalid address %q: empty payload", addr)
	}

	switch payload[0] {
	case FormatFull:
		if enc != Bech32m {
			return types.Script{}, fmt.Errorf("invalid address %q: full format requires bech32m", addr)
		}
		if len(payload) < 1+types.HashSize+1 {
			return types.Script{}, fmt.Errorf("invalid address %q: payload too short", addr)
		}
		var s types.Script
		copy(s.CodeHash[:], payload[1:1+types.HashSize])
		s.HashType = types.HashType(payload[1+types.HashSize])
		if s.HashType.String() == "unknown" {
			return types.Script{}, fmt.Errorf("invalid address %q: unknown hash type %#x", addr, payload[1+types.HashSize])
		}
		if args := payload[2+types.HashSize:]; len(args) > 0 {
			s.Args = append([]byte(nil), args...)
		}
		return s, nil

	case FormatShort:
		if enc != Bech32 {
			return types.Script{}, fmt.Errorf("invalid address %q: short format requires bech32", addr)
		}
		if len(payload) != 2+20 || payload[1] != 0x00 {
			return types.Script{}, fmt.Errorf("invalid address %q: unsupported short format", addr)
		}
		return types.Script{
			CodeHash: c.shortLock.CodeHash,
			HashType: c.shortLock.HashType,
			Args:     append([]byte(nil), payload[2:]...),
		}, nil

	default:
		return types.Script{}, fmt.Errorf("invalid address %q: unknown format %#x", addr, payload[0])
	}
}
