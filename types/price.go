package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	errNegativePrice    = errors.New("price must not be negative")
	errNegativeQuantity = errors.New("quantity must not be negative")
)

// Price is a non-negative decimal price. Positivity is enforced where the
// domain requires it (quotes, allocations), not here.
type Price struct {
	d decimal.Decimal
}

// NewPrice wraps a decimal as a Price, rejecting negative values.
func NewPrice(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return Price{}, errNegativePrice
	}
	return Price{d: d}, nil
}

// NewPriceFromFloat builds a Price from a float64.
func NewPriceFromFloat(f float64) (Price, error) {
	return NewPrice(decimal.NewFromFloat(f))
}

// NewPriceFromString parses a decimal string into a Price.
func NewPriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return NewPrice(d)
}

// MustPrice is a test/constant helper that panics on invalid input.
func MustPrice(s string) Price {
	p, err := NewPriceFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ZeroPrice returns the zero price.
func ZeroPrice() Price { return Price{d: decimal.Zero} }

// Decimal returns the underlying decimal value.
func (p Price) Decimal() decimal.Decimal { return p.d }

// IsZero reports whether the price is exactly zero.
func (p Price) IsZero() bool { return p.d.IsZero() }

// IsPositive reports whether the price is strictly greater than zero.
func (p Price) IsPositive() bool { return p.d.IsPositive() }

// Equal reports exact decimal equality.
func (p Price) Equal(other Price) bool { return p.d.Equal(other.d) }

// LessThan reports p < other.
func (p Price) LessThan(other Price) bool { return p.d.LessThan(other.d) }

// GreaterThan reports p > other.
func (p Price) GreaterThan(other Price) bool { return p.d.GreaterThan(other.d) }

// SafeMulQty returns price × quantity under checked multiplication.
func (p Price) SafeMulQty(q Quantity) (decimal.Decimal, error) {
	return SafeMul(p.d, q.d)
}

func (p Price) String() string { return p.d.String() }

// MarshalJSON encodes the price as a decimal string.
func (p Price) MarshalJSON() ([]byte, error) { return p.d.MarshalJSON() }

// UnmarshalJSON decodes a decimal string, rejecting negatives.
func (p *Price) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if d.IsNegative() {
		return errNegativePrice
	}
	p.d = d
	return nil
}

// Quantity is a non-negative decimal size.
type Quantity struct {
	d decimal.Decimal
}

// NewQuantity wraps a decimal as a Quantity, rejecting negative values.
func NewQuantity(d decimal.Decimal) (Quantity, error) {
	if d.IsNegative() {
		return Quantity{}, errNegativeQuantity
	}
	return Quantity{d: d}, nil
}

// NewQuantityFromFloat builds a Quantity from a float64.
func NewQuantityFromFloat(f float64) (Quantity, error) {
	return NewQuantity(decimal.NewFromFloat(f))
}

// NewQuantityFromString parses a decimal string into a Quantity.
func NewQuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return NewQuantity(d)
}

// MustQuantity is a test/constant helper that panics on invalid input.
func MustQuantity(s string) Quantity {
	q, err := NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroQuantity returns the zero quantity.
func ZeroQuantity() Quantity { return Quantity{d: decimal.Zero} }

// Decimal returns the underlying decimal value.
func (q Quantity) Decimal() decimal.Decimal { return q.d }

// IsZero reports whether the quantity is exactly zero.
func (q Quantity) IsZero() bool { return q.d.IsZero() }

// IsPositive reports whether the quantity is strictly greater than zero.
func (q Quantity) IsPositive() bool { return q.d.IsPositive() }

// Equal reports exact decimal equality.
func (q Quantity) Equal(other Quantity) bool { return q.d.Equal(other.d) }

// LessThan reports q < other.
func (q Quantity) LessThan(other Quantity) bool { return q.d.LessThan(other.d) }

// GreaterThan reports q > other.
func (q Quantity) GreaterThan(other Quantity) bool { return q.d.GreaterThan(other.d) }

// Min returns the smaller of q and other.
func (q Quantity) Min(other Quantity) Quantity {
	if q.d.LessThan(other.d) {
		return q
	}
	return other
}

// SafeAdd returns q+other under checked addition.
func (q Quantity) SafeAdd(other Quantity) (Quantity, error) {
	sum, err := SafeAdd(q.d, other.d)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{d: sum}, nil
}

// SafeSub returns q-other under checked subtraction; going negative is an underflow.
func (q Quantity) SafeSub(other Quantity) (Quantity, error) {
	diff, err := SafeSub(q.d, other.d)
	if err != nil {
		return Quantity{}, err
	}
	if diff.IsNegative() {
		return Quantity{}, ErrUnderflow
	}
	return Quantity{d: diff}, nil
}

func (q Quantity) String() string { return q.d.String() }

// MarshalJSON encodes the quantity as a decimal string.
func (q Quantity) MarshalJSON() ([]byte, error) { return q.d.MarshalJSON() }

// UnmarshalJSON decodes a decimal string, rejecting negatives.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if d.IsNegative() {
		return errNegativeQuantity
	}
	q.d = d
	return nil
}
