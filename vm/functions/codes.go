package functions

// Contract-visible error codes, returned as (err uN).
const (
	MintAssetAlreadyExists uint64 = 1

	MintTokenNonPositiveAmount uint64 = 1

	TransferAssetNotOwnedBy        uint64 = 1
	TransferAssetSenderIsRecipient uint64 = 2
	TransferAssetDoesNotExist      uint64 = 3

	TransferTokenNotEnoughBalance  uint64 = 1
	TransferTokenSenderIsRecipient uint64 = 2
	TransferTokenNonPositiveAmount uint64 = 3

	StxNotEnoughBalance    uint64 = 1
	StxSenderIsRecipient   uint64 = 2
	StxNonPositiveAmount   uint64 = 3
	StxSenderIsNotTxSender uint64 = 4
)
