package u128

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestAddDetectsOverflow(t *testing.T) {
	if _, ok := Add(Max(), From(1)); ok {
		t.Fatalf("expected overflow at 2^128")
	}
	sum, ok := Add(From(2), From(3))
	if !ok || sum.Uint64() != 5 {
		t.Fatalf("unexpected sum %v ok=%v", sum, ok)
	}
}

func TestSubUnderflow(t *testing.T) {
	if _, ok := Sub(From(1), From(2)); ok {
		t.Fatalf("expected underflow")
	}
	if diff, ok := Sub(nil, nil); !ok || !diff.IsZero() {
		t.Fatalf("nil operands should behave as zero")
	}
}

func TestMulBounds(t *testing.T) {
	half := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	if _, ok := Mul(half, half); ok {
		t.Fatalf("2^64 * 2^64 must overflow")
	}
	if _, ok := Div(From(1), Zero()); ok {
		t.Fatalf("division by zero must fail")
	}
}

func TestParseRoundTrip(t *testing.T) {
	text := "340282366920938463463374607431768211455"
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if String(v) != text {
		t.Fatalf("round trip: got %s", String(v))
	}
	if _, err := Parse("340282366920938463463374607431768211456"); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, err := Parse("12a"); err == nil {
		t.Fatalf("expected parse error")
	}
}
