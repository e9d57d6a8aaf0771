package functions

import (
	"sort"

	"github.com/holiman/uint256"

	"settlechain/core/types"
	"settlechain/core/u128"
	vmerrors "settlechain/vm/errors"
	"settlechain/vm/values"
)

// AssetMap records what each principal sent out during one transaction so
// the caller can check post-conditions once the transaction completes.
type AssetMap struct {
	stxTransfers   map[types.Principal]*uint256.Int
	burns          map[types.Principal]*uint256.Int
	tokenTransfers map[types.Principal]map[types.AssetIdentifier]*uint256.Int
	assetTransfers map[types.Principal]map[types.AssetIdentifier][]values.Value
}

// NewAssetMap returns an empty map.
func NewAssetMap() *AssetMap {
	return &AssetMap{
		stxTransfers:   make(map[types.Principal]*uint256.Int),
		burns:          make(map[types.Principal]*uint256.Int),
		tokenTransfers: make(map[types.Principal]map[types.AssetIdentifier]*uint256.Int),
		assetTransfers: make(map[types.Principal]map[types.AssetIdentifier][]values.Value),
	}
}

func addInto(m map[types.Principal]*uint256.Int, p types.Principal, amount *uint256.Int) error {
	next, ok := u128.Add(m[p], amount)
	if !ok {
		return vmerrors.ErrArithmeticOverflow
	}
	m[p] = next
	return nil
}

// AddSTXTransfer records amount of native coin sent by p.
func (m *AssetMap) AddSTXTransfer(p types.Principal, amount *uint256.Int) error {
	return addInto(m.stxTransfers, p, amount)
}

// AddSTXBurn records amount of native coin burned by p.
func (m *AssetMap) AddSTXBurn(p types.Principal, amount *uint256.Int) error {
	return addInto(m.burns, p, amount)
}

// AddTokenTransfer records amount of asset sent by p.
func (m *AssetMap) AddTokenTransfer(p types.Principal, asset types.AssetIdentifier, amount *uint256.Int) error {
	byAsset, ok := m.tokenTransfers[p]
	if !ok {
		byAsset = make(map[types.AssetIdentifier]*uint256.Int)
		m.tokenTransfers[p] = byAsset
	}
	next, ok := u128.Add(byAsset[asset], amount)
	if !ok {
		return vmerrors.ErrArithmeticOverflow
	}
	byAsset[asset] = next
	return nil
}

// AddAssetTransfer records one non-fungible token sent by p.
func (m *AssetMap) AddAssetTransfer(p types.Principal, asset types.AssetIdentifier, token values.Value) {
	byAsset, ok := m.assetTransfers[p]
	if !ok {
		byAsset = make(map[types.AssetIdentifier][]values.Value)
		m.assetTransfers[p] = byAsset
	}
	byAsset[asset] = append(byAsset[asset], token)
}

// STXSent returns the native coin sent by p, or nil when nothing was sent.
func (m *AssetMap) STXSent(p types.Principal) *uint256.Int { return m.stxTransfers[p] }

// STXBurned returns the native coin burned by p, or nil.
func (m *AssetMap) STXBurned(p types.Principal) *uint256.Int { return m.burns[p] }

// TokensSent returns the amount of asset sent by p, or nil.
func (m *AssetMap) TokensSent(p types.Principal, asset types.AssetIdentifier) *uint256.Int {
	return m.tokenTransfers[p][asset]
}

// AssetsSent returns the tokens of asset sent by p, in transfer order.
func (m *AssetMap) AssetsSent(p types.Principal, asset types.AssetIdentifier) []values.Value {
	return m.assetTransfers[p][asset]
}

// Principals returns every principal with a recorded movement, ordered.
func (m *AssetMap) Principals() []types.Principal {
	seen := make(map[types.Principal]struct{})
	for p := range m.stxTransfers {
		seen[p] = struct{}{}
	}
	for p := range m.burns {
		seen[p] = struct{}{}
	}
	for p := range m.tokenTransfers {
		seen[p] = struct{}{}
	}
	for p := range m.assetTransfers {
		seen[p] = struct{}{}
	}
	out := make([]types.Principal, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
