// Package units converts between base-unit integers and decimal token
// amounts at the CLI and log boundary.
package units

import (
	"fmt"
	"math/big"
	"strings"
)

// Format renders value as a decimal string with the given number of
// decimals, trimming trailing zeros.
func Format(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	rat := new(big.Rat).SetFrac(abs, pow10(decimals))
	text := rat.FloatString(int(decimals))
	if strings.Contains(text, ".") {
		text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	}
	if sign < 0 {
		return "-" + text
	}
	return text
}

// Parse converts a decimal string such as "12.5" into base units. Values
// with more fractional digits than decimals are rejected.
func Parse(text string, decimals uint8) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty amount")
	}
	rat, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", text)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative: %q", text)
	}
	rat.Mul(rat, new(big.Rat).SetInt(pow10(decimals)))
	if !rat.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", text, decimals)
	}
	return new(big.Int).Set(rat.Num()), nil
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
