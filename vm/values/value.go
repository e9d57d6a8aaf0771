// Package values models the contract-level values that flow through the
// asset operations: integers, booleans, buffers, ASCII strings, principals,
// optionals, responses and tuples.
package values

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"settlechain/core/types"
	"settlechain/core/u128"
)

// Value is any contract value.
type Value interface {
	Type() TypeSignature
	String() string
}

// UInt is an unsigned 128-bit integer.
type UInt struct{ V *uint256.Int }

// Int is a signed 128-bit integer.
type Int struct{ V *big.Int }

type Bool bool

// Buffer is an opaque byte string.
type Buffer []byte

type StringASCII string

// Principal wraps a ledger principal as a contract value.
type Principal struct{ types.Principal }

// Optional holds Some(Value) or, with a nil Value, None.
type Optional struct{ Value Value }

// Response is (ok Data) or (err Data).
type Response struct {
	Ok   bool
	Data Value
}

// TupleField is one named member of a tuple.
type TupleField struct {
	Name  string
	Value Value
}

// Tuple holds fields sorted by name.
type Tuple struct{ Fields []TupleField }

var (
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

// NewUInt builds a UInt from a uint64.
func NewUInt(v uint64) UInt { return UInt{V: uint256.NewInt(v)} }

// NewUIntFrom builds a UInt, rejecting values past 2^128-1.
func NewUIntFrom(v *uint256.Int) (UInt, error) {
	if !u128.InRange(v) {
		return UInt{}, fmt.Errorf("values: %s exceeds u128", v.Dec())
	}
	return UInt{V: new(uint256.Int).Set(v)}, nil
}

// NewInt builds an Int, rejecting values outside the i128 range.
func NewInt(v *big.Int) (Int, error) {
	if v.Cmp(minInt128) < 0 || v.Cmp(maxInt128) > 0 {
		return Int{}, fmt.Errorf("values: %s exceeds i128", v)
	}
	return Int{V: new(big.Int).Set(v)}, nil
}

// NewTuple sorts fields by name and rejects duplicates.
func NewTuple(fields ...TupleField) (Tuple, error) {
	sorted := append([]TupleField(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return Tuple{}, fmt.Errorf("values: duplicate tuple field %q", sorted[i].Name)
		}
	}
	return Tuple{Fields: sorted}, nil
}

// Some wraps v in an optional.
func Some(v Value) Optional { return Optional{Value: v} }

// None is the empty optional.
func None() Optional { return Optional{} }

// OkayTrue is the (ok true) response returned by successful operations.
func OkayTrue() Response { return Response{Ok: true, Data: Bool(true)} }

// ErrUInt is the (err uN) response carrying a contract-visible error code.
func ErrUInt(code uint64) Response { return Response{Ok: false, Data: NewUInt(code)} }

func (v UInt) String() string        { return "u" + u128.String(v.V) }
func (v Int) String() string         { return v.V.String() }
func (v Bool) String() string        { return fmt.Sprintf("%t", bool(v)) }
func (v Buffer) String() string      { return fmt.Sprintf("0x%x", []byte(v)) }
func (v StringASCII) String() string { return fmt.Sprintf("%q", string(v)) }
func (v Principal) String() string   { return "'" + v.Principal.String() }

func (v Optional) String() string {
	if v.Value == nil {
		return "none"
	}
	return "(some " + v.Value.String() + ")"
}

func (v Response) String() string {
	if v.Ok {
		return "(ok " + v.Data.String() + ")"
	}
	return "(err " + v.Data.String() + ")"
}

func (v Tuple) String() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Name+": "+f.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the named tuple field.
func (v Tuple) Get(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// IsNone reports whether the optional is empty.
func (v Optional) IsNone() bool { return v.Value == nil }
