package events

import (
	"github.com/holiman/uint256"

	"settlechain/core/types"
)

const (
	TypeFTMint      = "ft.mint"
	TypeFTTransfer  = "ft.transfer"
	TypeNFTMint     = "nft.mint"
	TypeNFTTransfer = "nft.transfer"
)

type FTMint struct {
	Asset     types.AssetIdentifier
	Recipient types.Principal
	Amount    *uint256.Int
}

func (FTMint) EventType() string { return TypeFTMint }

func (e FTMint) Event() *types.Event {
	attrs := assetAttrs(e.Asset)
	attrs["recipient"] = e.Recipient.String()
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: TypeFTMint, Attributes: attrs}
}

type FTTransfer struct {
	Asset     types.AssetIdentifier
	Sender    types.Principal
	Recipient types.Principal
	Amount    *uint256.Int
}

func (FTTransfer) EventType() string { return TypeFTTransfer }

func (e FTTransfer) Event() *types.Event {
	attrs := assetAttrs(e.Asset)
	attrs["sender"] = e.Sender.String()
	attrs["recipient"] = e.Recipient.String()
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: TypeFTTransfer, Attributes: attrs}
}

// NFTMint carries the token value in its printed form; the ledger key is
// derived from the serialized value and is not repeated here.
type NFTMint struct {
	Asset     types.AssetIdentifier
	Recipient types.Principal
	Value     string
}

func (NFTMint) EventType() string { return TypeNFTMint }

func (e NFTMint) Event() *types.Event {
	attrs := assetAttrs(e.Asset)
	attrs["recipient"] = e.Recipient.String()
	attrs["value"] = e.Value
	return &types.Event{Type: TypeNFTMint, Attributes: attrs}
}

type NFTTransfer struct {
	Asset     types.AssetIdentifier
	Sender    types.Principal
	Recipient types.Principal
	Value     string
}

func (NFTTransfer) EventType() string { return TypeNFTTransfer }

func (e NFTTransfer) Event() *types.Event {
	attrs := assetAttrs(e.Asset)
	attrs["sender"] = e.Sender.String()
	attrs["recipient"] = e.Recipient.String()
	attrs["value"] = e.Value
	return &types.Event{Type: TypeNFTTransfer, Attributes: attrs}
}
