// Package xudt decodes and encodes xUDT token amounts carried in cell data.
//
// An xUDT cell stores its balance as an unsigned 128-bit little-endian
// integer in the first 16 bytes of its data. Anything after those 16 bytes
// is opaque extension data owned by the token's scripts.
package xudt

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// AmountBits is the width of an xUDT amount.
const AmountBits = 128

// Amount errors.
var (
	ErrAmountOverflow  = errors.New("amount exceeds 2^128-1")
	ErrAmountUnderflow = errors.New("amount underflow")
)

// Amount is an unsigned 128-bit token quantity in minimal units.
// The zero value is a valid zero amount.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount holding n.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// AmountFromBig converts a non-negative big.Int into an Amount.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount must be non-negative")
	}
	v, overflow := uint256.FromBig(b)
	if overflow || v.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{v: *v}, nil
}

// ParseAmount parses a base-10 string of minimal units.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return Amount{}, ErrAmountOverflow
		}
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if v.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is like ParseAmount but panics on error. Intended for
// constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Lt reports whether a < b.
func (a Amount) Lt(b Amount) bool {
	return a.v.Lt(&b.v)
}

// Add returns a + b, failing if the sum does not fit in 128 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	out.v.Add(&a.v, &b.v)
	if out.v.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow
	}
	return out, nil
}

// Sub returns a - b, failing if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrAmountUnderflow, a, b)
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out, nil
}

// MulPow10 returns a * 10^exp, failing if the product does not fit.
func (a Amount) MulPow10(exp uint8) (Amount, error) {
	var scale, out uint256.Int
	scale.Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
	if _, overflow := out.MulOverflow(&a.v, &scale); overflow || out.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{v: out}, nil
}

// Big returns the amount as a new big.Int.
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// String returns the amount in base 10.
func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalText encodes the amount as a base-10 string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a base-10 string.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds amounts, failing on overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		total, err = total.Add(a)
		if err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
