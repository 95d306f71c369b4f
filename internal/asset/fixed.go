package asset

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrDivisionByZero = errors.New("asset: division by zero")
	ErrNonFinite      = errors.New("asset: non-finite value")
	ErrInvalidRaw     = errors.New("asset: invalid raw integer")
)

// ToFloat normalizes a raw fixed-point integer with the given decimal exponent.
// A nil raw value is zero.
func ToFloat(raw *big.Int, decimals int32) float64 {
	if raw == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -decimals).Float64()
	return f
}

// ToFloatString is ToFloat for a base-10 integer string.
func ToFloatString(raw string, decimals int32) (float64, error) {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return 0, ErrInvalidRaw
	}
	return ToFloat(n, decimals), nil
}

// ToFixedBig scales f by 10^decimals and truncates toward zero.
func ToFixedBig(f float64, decimals int32) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrNonFinite
	}
	return decimal.NewFromFloat(f).Shift(decimals).Truncate(0).BigInt(), nil
}

// ToFixed is ToFixedBig rendered as a base-10 integer string.
func ToFixed(f float64, decimals int32) (string, error) {
	n, err := ToFixedBig(f, decimals)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// Div divides num by den, signalling a zero denominator instead of producing Inf or NaN.
func Div(num, den float64) (float64, error) {
	if den == 0 {
		return 0, ErrDivisionByZero
	}
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, ErrNonFinite
	}
	return q, nil
}

// Pow10 returns 10^n as a big.Int.
func Pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
