package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/crypto"
	"settlechain/vm/values"
)

// GenesisSpec describes the ledger at height zero.
type GenesisSpec struct {
	GenesisTime       string                 `json:"genesisTime"`
	Network           string                 `json:"network"`
	Alloc             map[string]string      `json:"alloc"` // principal -> amount
	Locks             []LockSpec             `json:"locks,omitempty"`
	FungibleTokens    []FungibleTokenSpec    `json:"fungibleTokens,omitempty"`
	NonFungibleTokens []NonFungibleTokenSpec `json:"nonFungibleTokens,omitempty"`

	genesisTimestamp time.Time
	mainnet          bool
	balances         []allocation
	locks            []lock
	fungible         []fungibleToken
	nonFungible      []nonFungibleToken
}

// LockSpec places part of an allocated balance under a PoX lock.
type LockSpec struct {
	Address      string `json:"address"`
	Amount       string `json:"amount"`
	UnlockHeight uint64 `json:"unlockHeight"`
}

// FungibleTokenSpec declares a contract-defined fungible asset. An empty
// MaxSupply leaves the supply bounded only by u128.
type FungibleTokenSpec struct {
	Contract  string `json:"contract"`
	Name      string `json:"name"`
	MaxSupply string `json:"maxSupply,omitempty"`
}

// NonFungibleTokenSpec declares a non-fungible asset and the type of its
// token values, e.g. "uint" or "(buffer 32)".
type NonFungibleTokenSpec struct {
	Contract string `json:"contract"`
	Name     string `json:"name"`
	KeyType  string `json:"keyType"`
}

type allocation struct {
	principal types.Principal
	amount    *uint256.Int
}

type lock struct {
	principal    types.Principal
	amount       *uint256.Int
	unlockHeight uint64
}

type fungibleToken struct {
	asset     types.AssetIdentifier
	maxSupply *uint256.Int
}

type nonFungibleToken struct {
	asset   types.AssetIdentifier
	keyType values.TypeSignature
}

// LoadGenesisSpec reads and validates the JSON file at path.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// Mainnet reports whether addresses use the mainnet prefix.
func (s *GenesisSpec) Mainnet() bool { return s.mainnet }

func (s *GenesisSpec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts

	switch strings.ToLower(strings.TrimSpace(s.Network)) {
	case "mainnet":
		s.mainnet = true
	case "testnet", "":
		s.mainnet = false
	default:
		return fmt.Errorf("network %q must be mainnet or testnet", s.Network)
	}
	prefix := crypto.PrefixForNetwork(s.mainnet)

	addresses := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	s.balances = s.balances[:0]
	seen := make(map[types.Principal]struct{}, len(addresses))
	for _, addr := range addresses {
		p, err := s.parsePrincipal(addr, prefix)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("alloc[%q]: duplicate principal", addr)
		}
		seen[p] = struct{}{}
		amount, err := parseAmount(s.Alloc[addr])
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addr, err)
		}
		s.balances = append(s.balances, allocation{principal: p, amount: amount})
	}

	s.locks = s.locks[:0]
	locked := make(map[types.Principal]struct{}, len(s.Locks))
	for i, l := range s.Locks {
		p, err := s.parsePrincipal(l.Address, prefix)
		if err != nil {
			return fmt.Errorf("locks[%d]: %w", i, err)
		}
		if _, dup := locked[p]; dup {
			return fmt.Errorf("locks[%d]: %s is already locked", i, p)
		}
		locked[p] = struct{}{}
		amount, err := parseAmount(l.Amount)
		if err != nil {
			return fmt.Errorf("locks[%d]: %w", i, err)
		}
		if amount.IsZero() {
			return fmt.Errorf("locks[%d]: amount must be positive", i)
		}
		if l.UnlockHeight == 0 {
			return fmt.Errorf("locks[%d]: unlockHeight must be positive", i)
		}
		s.locks = append(s.locks, lock{principal: p, amount: amount, unlockHeight: l.UnlockHeight})
	}

	s.fungible = s.fungible[:0]
	for i, ft := range s.FungibleTokens {
		asset, err := s.parseAsset(ft.Contract, ft.Name, prefix)
		if err != nil {
			return fmt.Errorf("fungibleTokens[%d]: %w", i, err)
		}
		var maxSupply *uint256.Int
		if strings.TrimSpace(ft.MaxSupply) != "" {
			if maxSupply, err = parseAmount(ft.MaxSupply); err != nil {
				return fmt.Errorf("fungibleTokens[%d].maxSupply: %w", i, err)
			}
		}
		s.fungible = append(s.fungible, fungibleToken{asset: asset, maxSupply: maxSupply})
	}

	s.nonFungible = s.nonFungible[:0]
	for i, nft := range s.NonFungibleTokens {
		asset, err := s.parseAsset(nft.Contract, nft.Name, prefix)
		if err != nil {
			return fmt.Errorf("nonFungibleTokens[%d]: %w", i, err)
		}
		keyType, err := ParseKeyType(nft.KeyType)
		if err != nil {
			return fmt.Errorf("nonFungibleTokens[%d].keyType: %w", i, err)
		}
		s.nonFungible = append(s.nonFungible, nonFungibleToken{asset: asset, keyType: keyType})
	}
	return nil
}

func (s *GenesisSpec) parsePrincipal(raw string, prefix crypto.AddressPrefix) (types.Principal, error) {
	p, err := types.ParsePrincipal(strings.TrimSpace(raw))
	if err != nil {
		return types.Principal{}, err
	}
	if p.Address.Prefix() != prefix {
		return types.Principal{}, fmt.Errorf("address %s is not a %s address", p.Address, s.networkName())
	}
	return p, nil
}

func (s *GenesisSpec) parseAsset(contract, name string, prefix crypto.AddressPrefix) (types.AssetIdentifier, error) {
	p, err := s.parsePrincipal(contract, prefix)
	if err != nil {
		return types.AssetIdentifier{}, err
	}
	if !p.IsContract() {
		return types.AssetIdentifier{}, fmt.Errorf("%s is not a contract principal", p)
	}
	return types.NewAssetIdentifier(p, strings.TrimSpace(name))
}

func (s *GenesisSpec) networkName() string {
	if s.mainnet {
		return "mainnet"
	}
	return "testnet"
}

func parseGenesisTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("genesisTime: %w", err)
	}
	return ts.UTC(), nil
}

func parseAmount(value string) (*uint256.Int, error) {
	amount, err := u128.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// ParseKeyType parses the printed form of a non-fungible key type. Only the
// flat types are accepted: uint, int, bool, principal, (buffer N) and
// (string-ascii N).
func ParseKeyType(raw string) (values.TypeSignature, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "uint":
		return values.UIntType, nil
	case "int":
		return values.IntType, nil
	case "bool":
		return values.BoolType, nil
	case "principal":
		return values.PrincipalType, nil
	}
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		fields := strings.Fields(trimmed[1 : len(trimmed)-1])
		if len(fields) == 2 {
			n, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil || n == 0 {
				return values.NoType, fmt.Errorf("invalid length in %q", raw)
			}
			switch fields[0] {
			case "buffer":
				return values.BufferType(uint32(n)), nil
			case "string-ascii":
				return values.StringASCIIType(uint32(n)), nil
			}
		}
	}
	return values.NoType, fmt.Errorf("unsupported key type %q", raw)
}
