package xudt

import (
	"fmt"
	"strings"
)

// ParseUnits converts a decimal token-unit string such as "99.999999" into
// minimal units for a token with the given number of decimals.
func ParseUnits(s string, decimals uint8) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && frac == "" {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > int(decimals) {
		return Amount{}, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return Amount{}, fmt.Errorf("invalid amount %q", s)
			}
		}
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), "0")
	if digits == "" {
		return Amount{}, nil
	}
	return ParseAmount(digits)
}

// FormatUnits renders a minimal-unit amount in token units with exactly
// decimals fractional digits.
func FormatUnits(a Amount, decimals uint8) string {
	s := a.String()
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	return s[:len(s)-d] + "." + s[len(s)-d:]
}
