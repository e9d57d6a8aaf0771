package crypto

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressLength is the size of the hash carried by every account address.
const AddressLength = 20

// AddressPrefix is the human-readable part of a bech32 account address. It
// also identifies the network the address belongs to.
type AddressPrefix string

const (
	MainnetPrefix AddressPrefix = "sp"
	TestnetPrefix AddressPrefix = "st"
)

// PrefixForNetwork maps a configured network name to its address prefix.
func PrefixForNetwork(mainnet bool) AddressPrefix {
	if mainnet {
		return MainnetPrefix
	}
	return TestnetPrefix
}

// Address is a 20-byte account hash with its network prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

// NewAddress builds an address from raw bytes.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	var addr Address
	addr.prefix = prefix
	copy(addr.bytes[:], b)
	return addr, nil
}

// MustNewAddress is NewAddress for inputs known to be well formed.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// BurnAddress returns the canonical unspendable address for a network: the
// all-zero hash. Value credited here is destroyed.
func BurnAddress(mainnet bool) Address {
	return Address{prefix: PrefixForNetwork(mainnet)}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.bytes[:])
	return out
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address carries the all-zero hash.
func (a Address) IsZero() bool {
	return a.bytes == [AddressLength]byte{}
}

// Compare orders addresses by prefix, then hash bytes.
func (a Address) Compare(b Address) int {
	if a.prefix != b.prefix {
		if a.prefix < b.prefix {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.bytes[:], b.bytes[:])
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	switch AddressPrefix(prefix) {
	case MainnetPrefix, TestnetPrefix:
	default:
		return Address{}, fmt.Errorf("unsupported address prefix %q", prefix)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}
