// Package u128 implements unsigned 128-bit arithmetic on top of
// holiman/uint256. Every operation reports overflow past 2^128-1 instead of
// wrapping.
package u128

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrOutOfRange is returned when a decoded value does not fit in 128 bits.
var ErrOutOfRange = errors.New("u128: value out of range")

var maxU128 = func() *uint256.Int {
	one := uint256.NewInt(1)
	v := new(uint256.Int).Lsh(one, 128)
	return v.Sub(v, one)
}()

// Max returns 2^128-1.
func Max() *uint256.Int { return new(uint256.Int).Set(maxU128) }

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// From converts a uint64.
func From(v uint64) *uint256.Int { return uint256.NewInt(v) }

// InRange reports whether v fits in 128 bits. A nil value counts as zero.
func InRange(v *uint256.Int) bool {
	return v == nil || v.Cmp(maxU128) <= 0
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// Add returns a+b and false if the sum exceeds 128 bits.
func Add(a, b *uint256.Int) (*uint256.Int, bool) {
	sum, overflow := new(uint256.Int).AddOverflow(orZero(a), orZero(b))
	if overflow || sum.Cmp(maxU128) > 0 {
		return nil, false
	}
	return sum, true
}

// Sub returns a-b and false if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, bool) {
	a, b = orZero(a), orZero(b)
	if a.Lt(b) {
		return nil, false
	}
	return new(uint256.Int).Sub(a, b), true
}

// Mul returns a*b and false if the product exceeds 128 bits.
func Mul(a, b *uint256.Int) (*uint256.Int, bool) {
	prod, overflow := new(uint256.Int).MulOverflow(orZero(a), orZero(b))
	if overflow || prod.Cmp(maxU128) > 0 {
		return nil, false
	}
	return prod, true
}

// Div returns floor(a/b). Division by zero returns false.
func Div(a, b *uint256.Int) (*uint256.Int, bool) {
	b = orZero(b)
	if b.IsZero() {
		return nil, false
	}
	return new(uint256.Int).Div(orZero(a), b), true
}

// Parse decodes a base-10 string.
func Parse(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("u128: parse %q: %w", s, err)
	}
	if v.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, s)
	}
	return v, nil
}

// String formats v in base 10. A nil value formats as "0".
func String(v *uint256.Int) string {
	return orZero(v).Dec()
}
