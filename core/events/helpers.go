package events

import (
	"github.com/holiman/uint256"

	"settlechain/core/types"
)

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func assetAttrs(asset types.AssetIdentifier) map[string]string {
	return map[string]string{
		"contract": asset.Contract.String(),
		"asset":    asset.Name,
	}
}
