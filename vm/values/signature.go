package values

import (
	"fmt"

	"settlechain/core/types"
)

// Kind enumerates value types.
type Kind uint8

const (
	KindNoType Kind = iota
	KindUInt
	KindInt
	KindBool
	KindBuffer
	KindStringASCII
	KindPrincipal
	KindOptional
	KindResponse
	KindTuple
)

var kindNames = map[Kind]string{
	KindNoType:      "no-type",
	KindUInt:        "uint",
	KindInt:         "int",
	KindBool:        "bool",
	KindBuffer:      "buff",
	KindStringASCII: "string-ascii",
	KindPrincipal:   "principal",
	KindOptional:    "optional",
	KindResponse:    "response",
	KindTuple:       "tuple",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// PrincipalSize is the storage footprint of a principal: a version byte, a
// 20-byte hash, a name length byte and the longest contract name.
const PrincipalSize = 1 + 20 + 1 + types.MaxContractNameLength

// FieldType is one named member of a tuple type.
type FieldType struct {
	Name string
	Type TypeSignature
}

// TypeSignature describes the shape of a value. Length bounds buffers and
// strings; Inner is the optional payload; Ok and Err are the response arms.
type TypeSignature struct {
	Kind   Kind
	Length uint32
	Inner  *TypeSignature
	Ok     *TypeSignature
	Err    *TypeSignature
	Fields []FieldType
}

var (
	UIntType      = TypeSignature{Kind: KindUInt}
	IntType       = TypeSignature{Kind: KindInt}
	BoolType      = TypeSignature{Kind: KindBool}
	PrincipalType = TypeSignature{Kind: KindPrincipal}
	NoType        = TypeSignature{Kind: KindNoType}
)

// BufferType returns (buff n).
func BufferType(n uint32) TypeSignature { return TypeSignature{Kind: KindBuffer, Length: n} }

// StringASCIIType returns (string-ascii n).
func StringASCIIType(n uint32) TypeSignature { return TypeSignature{Kind: KindStringASCII, Length: n} }

// OptionalType returns (optional inner).
func OptionalType(inner TypeSignature) TypeSignature {
	return TypeSignature{Kind: KindOptional, Inner: &inner}
}

// ResponseType returns (response ok err).
func ResponseType(ok, err TypeSignature) TypeSignature {
	return TypeSignature{Kind: KindResponse, Ok: &ok, Err: &err}
}

// TupleType returns a tuple type; fields must be sorted by name.
func TupleType(fields ...FieldType) TypeSignature {
	return TypeSignature{Kind: KindTuple, Fields: fields}
}

func (t TypeSignature) String() string {
	switch t.Kind {
	case KindBuffer, KindStringASCII:
		return fmt.Sprintf("(%s %d)", t.Kind, t.Length)
	case KindOptional:
		return "(optional " + t.Inner.String() + ")"
	case KindResponse:
		return "(response " + t.Ok.String() + " " + t.Err.String() + ")"
	case KindTuple:
		out := "(tuple"
		for _, f := range t.Fields {
			out += " (" + f.Name + " " + f.Type.String() + ")"
		}
		return out + ")"
	default:
		return t.Kind.String()
	}
}

// Size is the maximum number of bytes a value of this type occupies.
func (t TypeSignature) Size() uint64 {
	switch t.Kind {
	case KindUInt, KindInt:
		return 16
	case KindBool:
		return 1
	case KindBuffer, KindStringASCII:
		return uint64(t.Length)
	case KindPrincipal:
		return PrincipalSize
	case KindOptional:
		return 1 + t.Inner.Size()
	case KindResponse:
		return 1 + max(t.Ok.Size(), t.Err.Size())
	case KindTuple:
		var total uint64
		for _, f := range t.Fields {
			total += uint64(len(f.Name)) + f.Type.Size()
		}
		return total
	default:
		return 0
	}
}

// Admits reports whether v is a member of type t.
func (t TypeSignature) Admits(v Value) bool {
	switch val := v.(type) {
	case UInt:
		return t.Kind == KindUInt && val.V != nil
	case Int:
		return t.Kind == KindInt && val.V != nil
	case Bool:
		return t.Kind == KindBool
	case Buffer:
		return t.Kind == KindBuffer && uint64(len(val)) <= uint64(t.Length)
	case StringASCII:
		if t.Kind != KindStringASCII || uint64(len(val)) > uint64(t.Length) {
			return false
		}
		for i := 0; i < len(val); i++ {
			if val[i] < 0x20 || val[i] > 0x7e {
				return false
			}
		}
		return true
	case Principal:
		return t.Kind == KindPrincipal
	case Optional:
		if t.Kind != KindOptional {
			return false
		}
		return val.Value == nil || t.Inner.Admits(val.Value)
	case Response:
		if t.Kind != KindResponse || val.Data == nil {
			return false
		}
		if val.Ok {
			return t.Ok.Admits(val.Data)
		}
		return t.Err.Admits(val.Data)
	case Tuple:
		if t.Kind != KindTuple || len(t.Fields) != len(val.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if val.Fields[i].Name != f.Name || !f.Type.Admits(val.Fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v UInt) Type() TypeSignature        { return UIntType }
func (v Int) Type() TypeSignature         { return IntType }
func (v Bool) Type() TypeSignature        { return BoolType }
func (v Buffer) Type() TypeSignature      { return BufferType(uint32(len(v))) }
func (v StringASCII) Type() TypeSignature { return StringASCIIType(uint32(len(v))) }
func (v Principal) Type() TypeSignature   { return PrincipalType }

func (v Optional) Type() TypeSignature {
	if v.Value == nil {
		return OptionalType(NoType)
	}
	return OptionalType(v.Value.Type())
}

func (v Response) Type() TypeSignature {
	if v.Ok {
		return ResponseType(v.Data.Type(), NoType)
	}
	return ResponseType(NoType, v.Data.Type())
}

func (v Tuple) Type() TypeSignature {
	fields := make([]FieldType, 0, len(v.Fields))
	for _, f := range v.Fields {
		fields = append(fields, FieldType{Name: f.Name, Type: f.Value.Type()})
	}
	return TupleType(fields...)
}
