package types

import (
	"fmt"
	"strings"

	"settlechain/crypto"
)

// MaxContractNameLength bounds the name half of a contract principal.
const MaxContractNameLength = 128

// Principal identifies an account (standard principal) or a deployed contract
// (contract principal). The zero Name denotes a standard principal. Values are
// comparable with == and ordered by Compare.
type Principal struct {
	Address crypto.Address
	Name    string
}

// StandardPrincipal wraps an account address.
func StandardPrincipal(addr crypto.Address) Principal {
	return Principal{Address: addr}
}

// ContractPrincipal names a contract deployed by issuer.
func ContractPrincipal(issuer crypto.Address, name string) Principal {
	return Principal{Address: issuer, Name: name}
}

// IsContract reports whether the principal names a contract.
func (p Principal) IsContract() bool { return p.Name != "" }

// Compare orders principals by address, then contract name.
func (p Principal) Compare(other Principal) int {
	if c := p.Address.Compare(other.Address); c != 0 {
		return c
	}
	return strings.Compare(p.Name, other.Name)
}

// Key returns a stable byte encoding used to build storage keys.
func (p Principal) Key() []byte {
	prefix := []byte(p.Address.Prefix())
	buf := make([]byte, 0, 1+len(prefix)+crypto.AddressLength+1+len(p.Name))
	buf = append(buf, byte(len(prefix)))
	buf = append(buf, prefix...)
	buf = append(buf, p.Address.Bytes()...)
	if p.Name != "" {
		buf = append(buf, '.')
		buf = append(buf, p.Name...)
	}
	return buf
}

func (p Principal) String() string {
	if p.Name == "" {
		return p.Address.String()
	}
	return p.Address.String() + "." + p.Name
}

// ParsePrincipal decodes "<address>" or "<address>.<contract-name>".
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	addrPart, name, _ := strings.Cut(s, ".")
	addr, err := crypto.DecodeAddress(addrPart)
	if err != nil {
		return Principal{}, fmt.Errorf("principal %q: %w", s, err)
	}
	if strings.Contains(s, ".") {
		if err := validateContractName(name); err != nil {
			return Principal{}, fmt.Errorf("principal %q: %w", s, err)
		}
	}
	return Principal{Address: addr, Name: name}, nil
}

func validateContractName(name string) error {
	if name == "" {
		return fmt.Errorf("contract name must not be empty")
	}
	if len(name) > MaxContractNameLength {
		return fmt.Errorf("contract name exceeds %d characters", MaxContractNameLength)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '_'):
		default:
			return fmt.Errorf("invalid character %q in contract name", r)
		}
	}
	return nil
}

// AssetIdentifier names one fungible or non-fungible asset class declared by
// a contract.
type AssetIdentifier struct {
	Contract Principal
	Name     string
}

// NewAssetIdentifier validates the parts of an asset identifier.
func NewAssetIdentifier(contract Principal, name string) (AssetIdentifier, error) {
	if !contract.IsContract() {
		return AssetIdentifier{}, fmt.Errorf("asset %q: %s is not a contract principal", name, contract)
	}
	if strings.TrimSpace(name) == "" {
		return AssetIdentifier{}, fmt.Errorf("asset name must not be empty")
	}
	return AssetIdentifier{Contract: contract, Name: name}, nil
}

func (a AssetIdentifier) String() string {
	return a.Contract.String() + "::" + a.Name
}
