package rewards

import (
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"settlechain/core/invariant"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/crypto"
)

// PoisonReports resolves poison-microblock reports by block height.
type PoisonReports interface {
	PoisonMicroblockReport(height uint64) (*state.PoisonReport, error)
}

// Engine schedules, matures and splits coinbase rewards.
type Engine struct {
	cfg      Config
	store    *Store
	ancestry AncestorIndex
	log      *slog.Logger
}

// NewEngine wires an engine to its payment store and ancestry index.
func NewEngine(cfg Config, store *Store, ancestry AncestorIndex, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, store: store, ancestry: ancestry, log: logger}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Store returns the payment store.
func (e *Engine) Store() *Store { return e.store }

// GetScheduledBlockRewardsInForkAtHeight returns the payment rows scheduled
// by the block at height in tip's fork, ordered by vtxindex. A fork without a
// block at that height yields an empty result.
func (e *Engine) GetScheduledBlockRewardsInForkAtHeight(store *Store, tip *types.HeaderInfo, height uint64) ([]*MinerPaymentSchedule, error) {
	ancestor, err := e.ancestry.TipAncestor(tip, height)
	if err != nil {
		return nil, err
	}
	if ancestor == nil {
		e.log.Debug("no ancestor at height", "height", height)
		return nil, nil
	}
	rows, err := store.PaymentsForBlock(ancestor.ConsensusHash, ancestor.BlockHash)
	if err != nil {
		return nil, err
	}
	e.log.Debug("scheduled rewards loaded",
		"count", len(rows),
		"consensusHash", ancestor.ConsensusHash.String(),
		"blockHash", ancestor.BlockHash.String())
	return rows, nil
}

// GetScheduledBlockRewards returns the rows that mature relative to tip:
// those scheduled Maturity blocks below it.
func (e *Engine) GetScheduledBlockRewards(store *Store, tip *types.HeaderInfo) ([]*MinerPaymentSchedule, error) {
	if tip.BlockHeight < e.cfg.Maturity {
		return nil, nil
	}
	return e.GetScheduledBlockRewardsInForkAtHeight(store, tip, tip.BlockHeight-e.cfg.Maturity)
}

// PoisonMicroblockCommission is the reporter's cut of a poisoned share.
func (e *Engine) PoisonMicroblockCommission(coinbase *uint256.Int) *uint256.Int {
	scaled, ok := u128.Mul(coinbase, u128.From(e.cfg.PoisonCommissionPercent))
	invariant.Check(ok, "poison commission on %s overflows u128", coinbase.Dec())
	out, _ := u128.Div(scaled, u128.From(100))
	return out
}

// CalculateMinerReward computes participant's share of the miner's declared
// coinbase: floor(coinbase * commit(participant) / Σ commit). Rounding dust
// is not redistributed. When poisonReporter is set the miner's share is cut
// to the commission and addressed to the reporter, and every supporter share
// is addressed to the burn address. Fee fields are not computed and are
// always zero.
func (e *Engine) CalculateMinerReward(participant, miner *MinerPaymentSchedule, users []*MinerPaymentSchedule, poisonReporter *crypto.Address) MinerReward {
	total := u128.From(miner.BurnchainCommitBurn)
	for _, user := range users {
		sum, ok := u128.Add(total, u128.From(user.BurnchainCommitBurn))
		invariant.Check(ok, "user support burn overflow")
		total = sum
	}
	invariant.Check(!total.IsZero(), "zero total commit burn for block %s", miner.BlockHash)

	this := u128.From(participant.BurnchainCommitBurn)
	scaled, ok := u128.Mul(miner.Coinbase, this)
	invariant.Check(ok, "STX coinbase reward overflow")
	share, _ := u128.Div(scaled, total)

	e.log.Debug("coinbase share",
		"participant", participant.Address.String(),
		"coinbase", u128.String(miner.Coinbase),
		"commit", participant.BurnchainCommitBurn,
		"totalCommit", total.Dec(),
		"share", share.Dec())

	recipient := participant.Address
	if poisonReporter != nil {
		if participant.Miner {
			share = e.PoisonMicroblockCommission(share)
			recipient = *poisonReporter
			e.log.Debug("poison-microblock commission", "reporter", recipient.String(), "commission", share.Dec())
		} else {
			recipient = crypto.BurnAddress(e.cfg.Mainnet)
		}
	}

	return MinerReward{
		Address:                 recipient,
		Coinbase:                share,
		TxFeesAnchored:          u128.Zero(),
		TxFeesStreamedProduced:  u128.Zero(),
		TxFeesStreamedConfirmed: u128.Zero(),
		VtxIndex:                participant.VtxIndex,
	}
}

// FindMatureMinerRewards resolves the schedule rows that mature at tip. The
// first row must be the block's miner; the rest are its supporters in
// vtxindex order. Below the maturity window, or without a schedule, the
// result is nil.
func (e *Engine) FindMatureMinerRewards(tip *types.HeaderInfo, matured []*MinerPaymentSchedule, poison PoisonReports) (*MaturedRewards, error) {
	if tip.BlockHeight <= e.cfg.Maturity {
		return nil, nil
	}
	if len(matured) == 0 {
		return nil, nil
	}
	rewardHeight := tip.BlockHeight - e.cfg.Maturity

	miner := matured[0]
	invariant.Check(miner.VtxIndex == 0 && miner.Miner, "first matured row for height %d is not the miner", rewardHeight)
	users := matured[1:]
	for _, user := range users {
		invariant.Check(!user.Miner, "multiple miners for %s/%s", miner.ConsensusHash, miner.BlockHash)
	}

	var reporter *crypto.Address
	if poison != nil {
		report, err := poison.PoisonMicroblockReport(rewardHeight)
		if err != nil {
			return nil, fmt.Errorf("rewards: poison report at %d: %w", rewardHeight, err)
		}
		if report != nil {
			addr := report.Reporter.Address
			reporter = &addr
			e.log.Debug("poison-microblock reporter", "reporter", addr.String(), "height", rewardHeight)
		}
	}

	out := &MaturedRewards{
		Miner: e.CalculateMinerReward(miner, miner, users, reporter),
		Users: make([]MinerReward, 0, len(users)),
		Info: MinerRewardInfo{
			FromStacksBlockHash:    miner.BlockHash,
			FromBlockConsensusHash: miner.ConsensusHash,
		},
		RewardHeight: rewardHeight,
		Poisoned:     reporter != nil,
	}
	for _, user := range users {
		out.Users = append(out.Users, e.CalculateMinerReward(user, miner, users, reporter))
	}
	return out, nil
}
