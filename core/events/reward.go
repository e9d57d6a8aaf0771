package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"settlechain/core/types"
)

const (
	TypeRewardPaid     = "rewards.paid"
	TypeRewardsMatured = "rewards.matured"
)

// RewardPaid is emitted for every resolved miner or supporter payout.
type RewardPaid struct {
	Recipient     types.Principal
	Coinbase      *uint256.Int
	Total         *uint256.Int
	VtxIndex      uint32
	FromBlock     types.BlockHeaderHash
	FromConsensus types.ConsensusHash
}

func (RewardPaid) EventType() string { return TypeRewardPaid }

func (e RewardPaid) Event() *types.Event {
	return &types.Event{Type: TypeRewardPaid, Attributes: map[string]string{
		"recipient":     e.Recipient.String(),
		"coinbase":      formatAmount(e.Coinbase),
		"total":         formatAmount(e.Total),
		"vtxindex":      strconv.FormatUint(uint64(e.VtxIndex), 10),
		"fromBlock":     e.FromBlock.String(),
		"fromConsensus": e.FromConsensus.String(),
	}}
}

// RewardsMatured summarises one matured schedule.
type RewardsMatured struct {
	Height        uint64
	RewardHeight  uint64
	FromBlock     types.BlockHeaderHash
	FromConsensus types.ConsensusHash
	Payouts       int
	Poisoned      bool
}

func (RewardsMatured) EventType() string { return TypeRewardsMatured }

func (e RewardsMatured) Event() *types.Event {
	return &types.Event{Type: TypeRewardsMatured, Height: e.Height, Attributes: map[string]string{
		"rewardHeight":  strconv.FormatUint(e.RewardHeight, 10),
		"fromBlock":     e.FromBlock.String(),
		"fromConsensus": e.FromConsensus.String(),
		"payouts":       strconv.Itoa(e.Payouts),
		"poisoned":      strconv.FormatBool(e.Poisoned),
	}}
}
