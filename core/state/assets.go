package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"settlechain/core/types"
	"settlechain/core/u128"
)

var (
	// ErrNoSuchToken is returned when an NFT has no owner record.
	ErrNoSuchToken = errors.New("state: no such token")
	// ErrNoSuchAsset is returned for operations on undeclared assets.
	ErrNoSuchAsset = errors.New("state: no such asset")
	// ErrAssetExists is returned when declaring an asset twice.
	ErrAssetExists = errors.New("state: asset already defined")
	// ErrSupplyOverflow is returned when a mint would exceed the declared
	// maximum supply or 2^128-1.
	ErrSupplyOverflow = errors.New("state: token supply overflow")
)

// FungibleTokenDefinition is the declaration of a fungible asset. A nil
// MaxSupply means the supply is bounded only by u128.
type FungibleTokenDefinition struct {
	MaxSupply *uint256.Int
}

type fungibleTokenRecord struct {
	Capped    bool
	MaxSupply *uint256.Int
}

// NonFungibleTokenDefinition records the encoded type signature of token
// keys. The encoding is owned by the value layer.
type NonFungibleTokenDefinition struct {
	KeyType []byte
}

// DefineFungibleToken declares a fungible asset with an optional cap.
func (m *Manager) DefineFungibleToken(asset types.AssetIdentifier, maxSupply *uint256.Int) error {
	exists, err := m.KVGet(FTDefinitionKey(asset), nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset)
	}
	if maxSupply != nil && !u128.InRange(maxSupply) {
		return fmt.Errorf("state: max supply of %s exceeds u128", asset)
	}
	rec := fungibleTokenRecord{MaxSupply: u128.Zero()}
	if maxSupply != nil {
		rec.Capped = true
		rec.MaxSupply.Set(maxSupply)
	}
	return m.KVPut(FTDefinitionKey(asset), &rec)
}

// FungibleToken returns the declaration of asset.
func (m *Manager) FungibleToken(asset types.AssetIdentifier) (*FungibleTokenDefinition, error) {
	var rec fungibleTokenRecord
	ok, err := m.KVGet(FTDefinitionKey(asset), &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAsset, asset)
	}
	def := &FungibleTokenDefinition{}
	if rec.Capped {
		def.MaxSupply = rec.MaxSupply
	}
	return def, nil
}

// DefineNonFungibleToken declares a non-fungible asset with its key type.
func (m *Manager) DefineNonFungibleToken(asset types.AssetIdentifier, keyType []byte) error {
	if len(keyType) == 0 {
		return fmt.Errorf("state: key type of %s must not be empty", asset)
	}
	exists, err := m.KVGet(NFTDefinitionKey(asset), nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset)
	}
	return m.KVPut(NFTDefinitionKey(asset), &NonFungibleTokenDefinition{KeyType: append([]byte(nil), keyType...)})
}

// NFTKeyType returns the encoded key type declared for asset.
func (m *Manager) NFTKeyType(asset types.AssetIdentifier) ([]byte, error) {
	var def NonFungibleTokenDefinition
	ok, err := m.KVGet(NFTDefinitionKey(asset), &def)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAsset, asset)
	}
	return def.KeyType, nil
}

// FTBalance returns the holder's balance of asset, zero when untouched.
func (m *Manager) FTBalance(asset types.AssetIdentifier, p types.Principal) (*uint256.Int, error) {
	if _, err := m.FungibleToken(asset); err != nil {
		return nil, err
	}
	balance := new(uint256.Int)
	if _, err := m.KVGet(FTBalanceKey(asset, p), balance); err != nil {
		return nil, fmt.Errorf("state: load %s balance of %s: %w", asset, p, err)
	}
	return balance, nil
}

// SetFTBalance stores the holder's balance of asset.
func (m *Manager) SetFTBalance(asset types.AssetIdentifier, p types.Principal, amount *uint256.Int) error {
	if !u128.InRange(amount) {
		return fmt.Errorf("state: %s balance of %s exceeds u128", asset, p)
	}
	return m.KVPut(FTBalanceKey(asset, p), amount)
}

// FTSupply returns the total minted supply of asset.
func (m *Manager) FTSupply(asset types.AssetIdentifier) (*uint256.Int, error) {
	if _, err := m.FungibleToken(asset); err != nil {
		return nil, err
	}
	supply := new(uint256.Int)
	if _, err := m.KVGet(FTSupplyKey(asset), supply); err != nil {
		return nil, fmt.Errorf("state: load %s supply: %w", asset, err)
	}
	return supply, nil
}

// CheckedIncreaseTokenSupply raises the supply counter of asset by amount. It
// fails with ErrSupplyOverflow, leaving the counter unchanged, when the result
// would pass the declared cap or 2^128-1.
func (m *Manager) CheckedIncreaseTokenSupply(asset types.AssetIdentifier, amount *uint256.Int) error {
	def, err := m.FungibleToken(asset)
	if err != nil {
		return err
	}
	current, err := m.FTSupply(asset)
	if err != nil {
		return err
	}
	next, ok := u128.Add(current, amount)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSupplyOverflow, asset)
	}
	if def.MaxSupply != nil && next.Gt(def.MaxSupply) {
		return fmt.Errorf("%w: %s cap %s", ErrSupplyOverflow, asset, def.MaxSupply.Dec())
	}
	return m.KVPut(FTSupplyKey(asset), next)
}

// NFTOwner returns the owner of the token with the given serialized key, or
// ErrNoSuchToken when it was never minted.
func (m *Manager) NFTOwner(asset types.AssetIdentifier, key []byte) (types.Principal, error) {
	if _, err := m.NFTKeyType(asset); err != nil {
		return types.Principal{}, err
	}
	var rec principalRecord
	ok, err := m.KVGet(NFTOwnerKey(asset, key), &rec)
	if err != nil {
		return types.Principal{}, err
	}
	if !ok {
		return types.Principal{}, ErrNoSuchToken
	}
	return rec.decode()
}

// SetNFTOwner records owner as the holder of the token.
func (m *Manager) SetNFTOwner(asset types.AssetIdentifier, key []byte, owner types.Principal) error {
	if len(key) == 0 {
		return fmt.Errorf("state: token key of %s must not be empty", asset)
	}
	return m.KVPut(NFTOwnerKey(asset, key), encodePrincipal(owner))
}
