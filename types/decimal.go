package types

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CHECKED DECIMAL ARITHMETIC
// ═══════════════════════════════════════════════════════════════════════════════
//
// All money math goes through these helpers. Operations never panic: out of
// range results surface as ErrOverflow/ErrUnderflow, zero divisors as
// ErrDivisionByZero. The representable range matches a 96-bit coefficient
// (|x| ≤ 79228162514264337593543950335), the engine's wire precision.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// maxAbsDecimal is the largest representable magnitude (2^96 - 1).
var maxAbsDecimal = decimal.RequireFromString("79228162514264337593543950335")

// Rounding selects the direction DivRound applies to a remainder.
type Rounding uint8

const (
	// RoundDown truncates toward zero.
	RoundDown Rounding = iota
	// RoundUp rounds away from zero.
	RoundUp
)

func (r Rounding) String() string {
	if r == RoundUp {
		return "Up"
	}
	return "Down"
}

func representable(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(maxAbsDecimal)
}

// SafeAdd returns a+b, or ErrOverflow if the sum leaves the representable range.
func SafeAdd(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)
	if !representable(sum) {
		return decimal.Zero, ErrOverflow
	}
	return sum, nil
}

// SafeSub returns a-b, or ErrUnderflow if the difference leaves the representable range.
func SafeSub(a, b decimal.Decimal) (decimal.Decimal, error) {
	diff := a.Sub(b)
	if !representable(diff) {
		return decimal.Zero, ErrUnderflow
	}
	return diff, nil
}

// SafeMul returns a*b, or ErrOverflow if the product leaves the representable range.
func SafeMul(a, b decimal.Decimal) (decimal.Decimal, error) {
	product := a.Mul(b)
	if !representable(product) {
		return decimal.Zero, ErrOverflow
	}
	return product, nil
}

// SafeDiv returns a/b. A zero divisor yields ErrDivisionByZero.
func SafeDiv(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	quotient := a.Div(b)
	if !representable(quotient) {
		return decimal.Zero, ErrOverflow
	}
	return quotient, nil
}

// DivRound divides with an explicit rounding direction applied to the remainder:
// RoundDown truncates toward zero, RoundUp moves away from zero when a
// remainder exists.
func DivRound(numerator, denominator decimal.Decimal, rounding Rounding) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	quotient := numerator.Div(denominator)
	truncated := quotient.Truncate(0)

	switch rounding {
	case RoundUp:
		if quotient.Equal(truncated) {
			return truncated, nil
		}
		if quotient.IsPositive() {
			return truncated.Add(decimal.New(1, 0)), nil
		}
		return truncated.Sub(decimal.New(1, 0)), nil
	default:
		return truncated, nil
	}
}
