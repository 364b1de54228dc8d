package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// MaxDecimals bounds the asset scales supported by the unit helpers.
const MaxDecimals = 36

// Pow10 returns 10^decimals.
func Pow10(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// Units converts a whole-token quantity into base units, e.g. Units(10, 6) is
// ten USDT.
func Units(whole uint64, decimals uint8) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), Pow10(decimals))
}

// ParseAmount decodes a base-unit decimal integer string.
func ParseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", trimmed, err)
	}
	return amount, nil
}

// ParseUnits converts a human readable token quantity ("100.5") into base units
// at the given scale. More fractional digits than the scale allows is an error.
func ParseUnits(value string, decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("unsupported decimals %d", decimals)
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	whole, frac, hasFrac := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", trimmed)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", trimmed, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid amount %q", trimmed)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", trimmed, err)
	}
	return amount, nil
}

// FormatUnits renders base units as a human readable quantity, trimming
// trailing fractional zeros.
func FormatUnits(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	digits := amount.Dec()
	if decimals == 0 {
		return digits
	}
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	cut := len(digits) - int(decimals)
	whole, frac := digits[:cut], strings.TrimRight(digits[cut:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// FormatAmount renders base units as a decimal integer string; nil is "0".
func FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.Dec()
}

// CloneAmount returns a copy of amount, mapping nil to zero.
func CloneAmount(amount *uint256.Int) *uint256.Int {
	if amount == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(amount)
}
