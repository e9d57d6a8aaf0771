package values

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"settlechain/core/types"
	"settlechain/crypto"
)

// wireValue is the RLP form of a value. Nested values sit in Items, in
// field order for tuples.
type wireValue struct {
	Kind  uint8
	Flag  bool
	Data  []byte
	Text  string
	Names []string
	Items []wireValue
}

// wireType is the RLP form of a type signature.
type wireType struct {
	Kind   uint8
	Length uint32
	Names  []string
	Items  []wireType
}

// Serialize encodes v deterministically. Equal values always produce equal
// bytes, which makes the encoding usable as a storage key.
func Serialize(v Value) ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&w)
}

// Deserialize decodes bytes produced by Serialize.
func Deserialize(data []byte) (Value, error) {
	var w wireValue
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("values: decode: %w", err)
	}
	return fromWire(w)
}

func toWire(v Value) (wireValue, error) {
	switch val := v.(type) {
	case UInt:
		if val.V == nil {
			return wireValue{}, fmt.Errorf("values: nil uint")
		}
		return wireValue{Kind: uint8(KindUInt), Data: val.V.Bytes()}, nil
	case Int:
		if val.V == nil {
			return wireValue{}, fmt.Errorf("values: nil int")
		}
		return wireValue{Kind: uint8(KindInt), Flag: val.V.Sign() < 0, Data: new(big.Int).Abs(val.V).Bytes()}, nil
	case Bool:
		return wireValue{Kind: uint8(KindBool), Flag: bool(val)}, nil
	case Buffer:
		return wireValue{Kind: uint8(KindBuffer), Data: append([]byte{}, val...)}, nil
	case StringASCII:
		return wireValue{Kind: uint8(KindStringASCII), Text: string(val)}, nil
	case Principal:
		return wireValue{
			Kind:  uint8(KindPrincipal),
			Data:  val.Address.Bytes(),
			Text:  string(val.Address.Prefix()),
			Names: contractName(val.Name),
		}, nil
	case Optional:
		w := wireValue{Kind: uint8(KindOptional)}
		if val.Value != nil {
			inner, err := toWire(val.Value)
			if err != nil {
				return wireValue{}, err
			}
			w.Flag = true
			w.Items = []wireValue{inner}
		}
		return w, nil
	case Response:
		if val.Data == nil {
			return wireValue{}, fmt.Errorf("values: response without data")
		}
		inner, err := toWire(val.Data)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: uint8(KindResponse), Flag: val.Ok, Items: []wireValue{inner}}, nil
	case Tuple:
		w := wireValue{Kind: uint8(KindTuple)}
		for _, f := range val.Fields {
			inner, err := toWire(f.Value)
			if err != nil {
				return wireValue{}, err
			}
			w.Names = append(w.Names, f.Name)
			w.Items = append(w.Items, inner)
		}
		return w, nil
	default:
		return wireValue{}, fmt.Errorf("values: cannot serialize %T", v)
	}
}

func contractName(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}

func fromWire(w wireValue) (Value, error) {
	switch Kind(w.Kind) {
	case KindUInt:
		return NewUIntFrom(new(uint256.Int).SetBytes(w.Data))
	case KindInt:
		n := new(big.Int).SetBytes(w.Data)
		if w.Flag {
			n.Neg(n)
		}
		return NewInt(n)
	case KindBool:
		return Bool(w.Flag), nil
	case KindBuffer:
		return Buffer(append([]byte{}, w.Data...)), nil
	case KindStringASCII:
		return StringASCII(w.Text), nil
	case KindPrincipal:
		addr, err := crypto.NewAddress(crypto.AddressPrefix(w.Text), w.Data)
		if err != nil {
			return nil, fmt.Errorf("values: principal: %w", err)
		}
		p := types.Principal{Address: addr}
		if len(w.Names) == 1 {
			p.Name = w.Names[0]
		}
		return Principal{p}, nil
	case KindOptional:
		if !w.Flag {
			return None(), nil
		}
		if len(w.Items) != 1 {
			return nil, fmt.Errorf("values: malformed optional")
		}
		inner, err := fromWire(w.Items[0])
		if err != nil {
			return nil, err
		}
		return Some(inner), nil
	case KindResponse:
		if len(w.Items) != 1 {
			return nil, fmt.Errorf("values: malformed response")
		}
		inner, err := fromWire(w.Items[0])
		if err != nil {
			return nil, err
		}
		return Response{Ok: w.Flag, Data: inner}, nil
	case KindTuple:
		if len(w.Names) != len(w.Items) {
			return nil, fmt.Errorf("values: malformed tuple")
		}
		fields := make([]TupleField, 0, len(w.Items))
		for i, item := range w.Items {
			inner, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			fields = append(fields, TupleField{Name: w.Names[i], Value: inner})
		}
		return NewTuple(fields...)
	default:
		return nil, fmt.Errorf("values: unknown kind %d", w.Kind)
	}
}

// EncodeType encodes a type signature for storage.
func EncodeType(t TypeSignature) ([]byte, error) {
	return rlp.EncodeToBytes(typeToWire(t))
}

// DecodeType decodes a type signature produced by EncodeType.
func DecodeType(data []byte) (TypeSignature, error) {
	var w wireType
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return TypeSignature{}, fmt.Errorf("values: decode type: %w", err)
	}
	return typeFromWire(w)
}

func typeToWire(t TypeSignature) *wireType {
	w := &wireType{Kind: uint8(t.Kind), Length: t.Length}
	switch t.Kind {
	case KindOptional:
		w.Items = []wireType{*typeToWire(*t.Inner)}
	case KindResponse:
		w.Items = []wireType{*typeToWire(*t.Ok), *typeToWire(*t.Err)}
	case KindTuple:
		for _, f := range t.Fields {
			w.Names = append(w.Names, f.Name)
			w.Items = append(w.Items, *typeToWire(f.Type))
		}
	}
	return w
}

func typeFromWire(w wireType) (TypeSignature, error) {
	t := TypeSignature{Kind: Kind(w.Kind), Length: w.Length}
	switch t.Kind {
	case KindNoType, KindUInt, KindInt, KindBool, KindBuffer, KindStringASCII, KindPrincipal:
		return t, nil
	case KindOptional:
		if len(w.Items) != 1 {
			return t, fmt.Errorf("values: malformed optional type")
		}
		inner, err := typeFromWire(w.Items[0])
		if err != nil {
			return t, err
		}
		return OptionalType(inner), nil
	case KindResponse:
		if len(w.Items) != 2 {
			return t, fmt.Errorf("values: malformed response type")
		}
		ok, err := typeFromWire(w.Items[0])
		if err != nil {
			return t, err
		}
		errType, err := typeFromWire(w.Items[1])
		if err != nil {
			return t, err
		}
		return ResponseType(ok, errType), nil
	case KindTuple:
		if len(w.Names) != len(w.Items) {
			return t, fmt.Errorf("values: malformed tuple type")
		}
		fields := make([]FieldType, 0, len(w.Items))
		for i, item := range w.Items {
			ft, err := typeFromWire(item)
			if err != nil {
				return t, err
			}
			fields = append(fields, FieldType{Name: w.Names[i], Type: ft})
		}
		return TupleType(fields...), nil
	default:
		return t, fmt.Errorf("values: unknown type kind %d", w.Kind)
	}
}
