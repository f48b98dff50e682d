package address

import (
	"fmt"
	"strings"
)

// Encoding selects the bech32 checksum constant.
type Encoding uint32

const (
	Bech32  Encoding = 1          // BIP-173, used by short-format addresses
	Bech32m Encoding = 0x2bc830a3 // BIP-350, used by full-format addresses
)

// maxLength is the longest address accepted. Full-format addresses carry
// arbitrary args so the BIP-173 limit of 90 does not apply.
const maxLength = 1023

// Bech32 charset used for encoding (BIP-173).
const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// charsetRev maps bech32 characters to their 5-bit values. -1 = invalid.
var charsetRev [128]int8

func init() {
	for i := range charsetRev {
		charsetRev[i] = -1
	}
	for i, c := range charset {
		charsetRev[c] = int8(i)
	}
}

// encode encodes a human-readable part and data bytes with the given checksum variant.
func encode(hrp string, data []byte, enc Encoding) (string, error) {
	if len(hrp) == 0 {
		return "", fmt.Errorf("bech32: empty HRP")
	}
	for _, c := range hrp {
		if c < 33 || c > 126 {
			return "", fmt.Errorf("bech32: invalid HRP character %q", c)
		}
	}

	conv, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}
	chk := createChecksum(hrp, conv, enc)

	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(conv) + 6)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range conv {
		sb.WriteByte(charset[b])
	}
	for _, b := range chk {
		sb.WriteByte(charset[b])
	}
	return sb.String(), nil
}

// decode decodes a bech32 or bech32m string and reports which variant matched.
func decode(s string) (string, []byte, Encoding, error) {
	if len(s) == 0 {
		return "", nil, 0, fmt.Errorf("bech32: empty string")
	}
	if len(s) > maxLength {
		return "", nil, 0, fmt.Errorf("bech32: too long (%d chars)", len(s))
	}

	// Reject mixed case.
	hasUpper := false
	hasLower := false
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
	}
	if hasUpper && hasLower {
		return "", nil, 0, fmt.Errorf("bech32: mixed case")
	}
	s = strings.ToLower(s)

	sepIdx := strings.LastIndex(s, "1")
	if sepIdx < 1 {
		return "", nil, 0, fmt.Errorf("bech32: missing separator")
	}
	if sepIdx+7 > len(s) {
		return "", nil, 0, fmt.Errorf("bech32: too short")
	}

	hrp := s[:sepIdx]
	dataStr := s[sepIdx+1:]

	data5 := make([]byte, len(dataStr))
	for i, c := range dataStr {
		if c > 127 {
			return "", nil, 0, fmt.Errorf("bech32: invalid character %q", c)
		}
		val := charsetRev[c]
		if val < 0 {
			return "", nil, 0, fmt.Errorf("bech32: invalid character %q", c)
		}
		data5[i] = byte(val)
	}

	var enc Encoding
	switch polymod(append(hrpExpand(hrp), data5...)) {
	case uint32(Bech32):
		enc = Bech32
	case uint32(Bech32m):
		enc = Bech32m
	default:
		return "", nil, 0, fmt.Errorf("bech32: invalid checksum")
	}

	data8, err := convertBits(data5[:len(data5)-6], 5, 8, false)
	if err != nil {
		return "", nil, 0, fmt.Errorf("bech32: convert bits: %w", err)
	}
	return hrp, data8, enc, nil
}

// polymod computes the bech32 polynomial modulus.
func polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

// hrpExpand expands the HRP for checksum computation.
func hrpExpand(hrp string) []byte {
	ret := make([]byte, 0, len(hrp)*2+1)
	for _, c := range hrp {
		ret = append(ret, byte(c>>5))
	}
	ret = append(ret, 0)
	for _, c := range hrp {
		ret = append(ret, byte(c&31))
	}
	return ret
}

// createChecksum creates a 6-symbol checksum for the given HRP and data.
func createChecksum(hrp string, data []byte, enc Encoding) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ uint32(enc)
	ret := make([]byte, 6)
	for i := 0; i < 6; i++ {
		ret[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return ret
}

// convertBits converts between bit groups.
// fromBits/toBits are the source/destination group sizes (e.g. 8 and 5).
// pad controls whether incomplete groups are zero-padded.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	var ret []byte

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else {
		if bits >= fromBits {
			return nil, fmt.Errorf("non-zero padding")
		}
		if (acc<<(toBits-bits))&maxv != 0 {
			return nil, fmt.Errorf("non-zero padding")
		}
	}
	return ret, nil
}
