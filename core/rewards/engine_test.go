package rewards

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"settlechain/core/invariant"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/crypto"
)

func testAddress(b byte) crypto.Address {
	return crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{b}, 20))
}

func minerSchedule(addr crypto.Address, coinbase uint64, commit uint64) *MinerPaymentSchedule {
	return &MinerPaymentSchedule{
		Address:             addr,
		BlockHash:           types.BlockHeaderHash{0xbb},
		ConsensusHash:       types.ConsensusHash{0xcc},
		Coinbase:            uint256.NewInt(coinbase),
		TxFeesAnchored:      uint256.NewInt(0),
		TxFeesStreamed:      uint256.NewInt(0),
		StxBurns:            uint256.NewInt(0),
		BurnchainCommitBurn: commit,
		Miner:               true,
	}
}

func userSchedule(miner *MinerPaymentSchedule, addr crypto.Address, commit uint64, vtx uint32) *MinerPaymentSchedule {
	user := *miner
	user.Address = addr
	user.BurnchainCommitBurn = commit
	user.Miner = false
	user.VtxIndex = vtx
	return &user
}

func newTestEngine(t *testing.T, store *Store, ancestry AncestorIndex) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultConfig(), store, ancestry, nil)
	require.NoError(t, err)
	return engine
}

type poisonMap map[uint64]*state.PoisonReport

func (p poisonMap) PoisonMicroblockReport(height uint64) (*state.PoisonReport, error) {
	return p[height], nil
}

func TestMinerRewardOneMinerNoUsers(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 1000)

	reward := engine.CalculateMinerReward(miner, miner, nil, nil)
	require.Equal(t, uint64(500), reward.Coinbase.Uint64())
	require.True(t, reward.TxFeesAnchored.IsZero())
	require.True(t, reward.TxFeesStreamedProduced.IsZero())
	require.True(t, reward.TxFeesStreamedConfirmed.IsZero())
	require.Equal(t, uint64(500), reward.Total().Uint64())
}

func TestMinerRewardOneMinerOneUser(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 250)
	user := userSchedule(miner, testAddress(2), 750, 1)
	users := []*MinerPaymentSchedule{user}

	minerReward := engine.CalculateMinerReward(miner, miner, users, nil)
	userReward := engine.CalculateMinerReward(user, miner, users, nil)
	require.Equal(t, uint64(125), minerReward.Coinbase.Uint64())
	require.Equal(t, uint64(375), userReward.Coinbase.Uint64())
	require.Equal(t, testAddress(2), userReward.Address)
	require.Equal(t, uint32(1), userReward.VtxIndex)
}

func TestMinerRewardSplitNeverExceedsCoinbase(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 1000, 333)
	users := []*MinerPaymentSchedule{
		userSchedule(miner, testAddress(2), 333, 1),
		userSchedule(miner, testAddress(3), 333, 2),
	}
	total := engine.CalculateMinerReward(miner, miner, users, nil).Coinbase.Uint64()
	for _, user := range users {
		total += engine.CalculateMinerReward(user, miner, users, nil).Coinbase.Uint64()
	}
	// 3 * floor(1000/3); the dust is destroyed.
	require.Equal(t, uint64(999), total)
}

func TestMinerRewardPoisoned(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 250)
	user := userSchedule(miner, testAddress(2), 750, 1)
	users := []*MinerPaymentSchedule{user}
	reporter := testAddress(9)

	minerReward := engine.CalculateMinerReward(miner, miner, users, &reporter)
	require.Equal(t, reporter, minerReward.Address)
	require.Equal(t, uint64(6), minerReward.Coinbase.Uint64(), "5 percent of 125 rounds down to 6")

	userReward := engine.CalculateMinerReward(user, miner, users, &reporter)
	require.True(t, userReward.Address.IsZero())
	require.Equal(t, uint64(375), userReward.Coinbase.Uint64())
}

func TestMinerRewardZeroCommitIsFatal(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 0)
	require.PanicsWithValue(t, &invariant.Violation{Message: "zero total commit burn for block " + miner.BlockHash.String()}, func() {
		engine.CalculateMinerReward(miner, miner, nil, nil)
	})
}

func TestFindMatureMinerRewardsBelowMaturity(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 1000)
	tip := &types.HeaderInfo{BlockHeight: DefaultMaturity}

	matured, err := engine.FindMatureMinerRewards(tip, []*MinerPaymentSchedule{miner}, nil)
	require.NoError(t, err)
	require.Nil(t, matured)
}

func TestFindMatureMinerRewardsWithPoison(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 250)
	user := userSchedule(miner, testAddress(2), 750, 1)
	tip := &types.HeaderInfo{BlockHeight: DefaultMaturity + 4}
	reporter := types.StandardPrincipal(testAddress(7))
	poison := poisonMap{4: {Reporter: reporter, Sequence: 1}}

	matured, err := engine.FindMatureMinerRewards(tip, []*MinerPaymentSchedule{miner, user}, poison)
	require.NoError(t, err)
	require.NotNil(t, matured)
	require.True(t, matured.Poisoned)
	require.Equal(t, uint64(4), matured.RewardHeight)
	require.Equal(t, reporter.Address, matured.Miner.Address)
	require.Equal(t, uint64(6), matured.Miner.Coinbase.Uint64())
	require.Len(t, matured.Users, 1)
	require.True(t, matured.Users[0].Address.IsZero())
	require.Equal(t, miner.BlockHash, matured.Info.FromStacksBlockHash)
	require.Equal(t, miner.ConsensusHash, matured.Info.FromBlockConsensusHash)
	require.Len(t, matured.All(), 2)
}

func TestFindMatureMinerRewardsRequiresMinerFirst(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	miner := minerSchedule(testAddress(1), 500, 250)
	user := userSchedule(miner, testAddress(2), 750, 1)
	tip := &types.HeaderInfo{BlockHeight: DefaultMaturity + 1}
	require.Panics(t, func() {
		_, _ = engine.FindMatureMinerRewards(tip, []*MinerPaymentSchedule{user, miner}, nil)
	})
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, Config{Maturity: 0, PoisonCommissionPercent: 5}.Validate())
	require.Error(t, Config{Maturity: 10, PoisonCommissionPercent: 101}.Validate())
}
