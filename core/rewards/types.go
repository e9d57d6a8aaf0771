package rewards

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"settlechain/core/invariant"
	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/crypto"
)

// MinerPaymentSchedule is one scheduled reward row. Each accepted block
// schedules one miner row (VtxIndex 0, Miner true) and one row per burn
// supporter. Rows are never updated once written.
type MinerPaymentSchedule struct {
	Address                crypto.Address
	BlockHash              types.BlockHeaderHash
	ConsensusHash          types.ConsensusHash
	ParentBlockHash        types.BlockHeaderHash
	ParentConsensusHash    types.ConsensusHash
	Coinbase               *uint256.Int
	TxFeesAnchored         *uint256.Int
	TxFeesStreamed         *uint256.Int
	StxBurns               *uint256.Int
	BurnchainCommitBurn    uint64
	BurnchainSortitionBurn uint64
	Fill                   uint64
	Miner                  bool
	StacksBlockHeight      uint64
	VtxIndex               uint32
}

// IndexBlockHash returns the fork-unique identifier of the scheduling block.
func (s *MinerPaymentSchedule) IndexBlockHash() common.Hash {
	return types.IndexBlockHash(s.ConsensusHash, s.BlockHash)
}

// UserBurnSupport is a burn supporter backing the miner of a block.
type UserBurnSupport struct {
	Address    crypto.Address
	BurnAmount uint64
	VtxIndex   uint32
}

// MinerReward is the resolved payout of one participant.
type MinerReward struct {
	Address                 crypto.Address
	Coinbase                *uint256.Int
	TxFeesAnchored          *uint256.Int
	TxFeesStreamedProduced  *uint256.Int
	TxFeesStreamedConfirmed *uint256.Int
	VtxIndex                uint32
}

// Total sums the coinbase and all fee fields.
func (r MinerReward) Total() *uint256.Int {
	total := u128.Zero()
	for _, part := range []*uint256.Int{r.Coinbase, r.TxFeesAnchored, r.TxFeesStreamedProduced, r.TxFeesStreamedConfirmed} {
		sum, ok := u128.Add(total, part)
		invariant.Check(ok, "miner reward total for %s overflows u128", r.Address)
		total = sum
	}
	return total
}

// MinerRewardInfo identifies the block whose schedule produced a batch of
// rewards.
type MinerRewardInfo struct {
	FromStacksBlockHash    types.BlockHeaderHash
	FromBlockConsensusHash types.ConsensusHash
}

// MaturedRewards is the resolution of one matured schedule.
type MaturedRewards struct {
	Miner        MinerReward
	Users        []MinerReward
	Info         MinerRewardInfo
	RewardHeight uint64
	Poisoned     bool
}

// All returns the miner reward followed by the supporter rewards.
func (m *MaturedRewards) All() []MinerReward {
	out := make([]MinerReward, 0, 1+len(m.Users))
	out = append(out, m.Miner)
	return append(out, m.Users...)
}
