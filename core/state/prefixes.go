package state

import (
	"encoding/binary"

	"settlechain/core/types"
)

const (
	stxBalancePrefix   = "stx/balance/"
	stxNoncePrefix     = "stx/nonce/"
	ftBalancePrefix    = "ft/balance/"
	ftSupplyPrefix     = "ft/supply/"
	ftDefPrefix        = "ft/def/"
	nftOwnerPrefix     = "nft/owner/"
	nftDefPrefix       = "nft/def/"
	poisonReportPrefix = "poison/report/"
)

// composeKey joins length-prefixed parts behind a namespace so that variable
// length principals and names never collide.
func composeKey(namespace string, parts ...[]byte) []byte {
	size := len(namespace)
	for _, part := range parts {
		size += binary.MaxVarintLen64 + len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, namespace...)
	for _, part := range parts {
		buf = binary.AppendUvarint(buf, uint64(len(part)))
		buf = append(buf, part...)
	}
	return buf
}

// STXBalanceKey namespaces the native balance of a principal.
func STXBalanceKey(p types.Principal) []byte {
	return composeKey(stxBalancePrefix, p.Key())
}

// NonceKey namespaces the account nonce of a principal.
func NonceKey(p types.Principal) []byte {
	return composeKey(stxNoncePrefix, p.Key())
}

// FTBalanceKey namespaces a holder's fungible balance for one asset.
func FTBalanceKey(asset types.AssetIdentifier, p types.Principal) []byte {
	return composeKey(ftBalancePrefix, asset.Contract.Key(), []byte(asset.Name), p.Key())
}

// FTSupplyKey namespaces the total supply counter of a fungible asset.
func FTSupplyKey(asset types.AssetIdentifier) []byte {
	return composeKey(ftSupplyPrefix, asset.Contract.Key(), []byte(asset.Name))
}

// FTDefinitionKey namespaces the declaration of a fungible asset.
func FTDefinitionKey(asset types.AssetIdentifier) []byte {
	return composeKey(ftDefPrefix, asset.Contract.Key(), []byte(asset.Name))
}

// NFTOwnerKey namespaces the owner record of one token; value is the
// serialized token key.
func NFTOwnerKey(asset types.AssetIdentifier, value []byte) []byte {
	return composeKey(nftOwnerPrefix, asset.Contract.Key(), []byte(asset.Name), value)
}

// NFTDefinitionKey namespaces the declaration of a non-fungible asset.
func NFTDefinitionKey(asset types.AssetIdentifier) []byte {
	return composeKey(nftDefPrefix, asset.Contract.Key(), []byte(asset.Name))
}

// PoisonReportKey namespaces the poison-microblock report for a height.
func PoisonReportKey(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return composeKey(poisonReportPrefix, buf[:])
}
