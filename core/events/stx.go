package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"settlechain/core/types"
)

const (
	TypeSTXTransfer = "stx.transfer"
	TypeSTXBurn     = "stx.burn"
	TypeSTXLock     = "stx.lock"
)

// STXTransfer records a native coin movement between two principals.
type STXTransfer struct {
	Sender    types.Principal
	Recipient types.Principal
	Amount    *uint256.Int
}

func (STXTransfer) EventType() string { return TypeSTXTransfer }

func (e STXTransfer) Event() *types.Event {
	return &types.Event{Type: TypeSTXTransfer, Attributes: map[string]string{
		"sender":    e.Sender.String(),
		"recipient": e.Recipient.String(),
		"amount":    formatAmount(e.Amount),
	}}
}

// STXBurn records native coin destroyed by its holder.
type STXBurn struct {
	Sender types.Principal
	Amount *uint256.Int
}

func (STXBurn) EventType() string { return TypeSTXBurn }

func (e STXBurn) Event() *types.Event {
	return &types.Event{Type: TypeSTXBurn, Attributes: map[string]string{
		"sender": e.Sender.String(),
		"amount": formatAmount(e.Amount),
	}}
}

// STXLock records a PoX lock placed on a balance.
type STXLock struct {
	Principal    types.Principal
	Amount       *uint256.Int
	UnlockHeight uint64
}

func (STXLock) EventType() string { return TypeSTXLock }

func (e STXLock) Event() *types.Event {
	return &types.Event{Type: TypeSTXLock, Attributes: map[string]string{
		"principal":    e.Principal.String(),
		"amount":       formatAmount(e.Amount),
		"unlockHeight": strconv.FormatUint(e.UnlockHeight, 10),
	}}
}
