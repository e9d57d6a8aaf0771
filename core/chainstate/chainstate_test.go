package chainstate

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"settlechain/core/events"
	"settlechain/core/rewards"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/crypto"
	"settlechain/storage"
)

func testAddress(b byte) crypto.Address {
	return crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{b}, 20))
}

func newTestChainstate(t *testing.T, maturity uint64) *Chainstate {
	t.Helper()
	store, err := rewards.OpenStore(filepath.Join(t.TempDir(), "payments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := rewards.DefaultConfig()
	cfg.Maturity = maturity
	engine, err := rewards.NewEngine(cfg, store, rewards.NewHeaderAncestry(store), nil)
	require.NoError(t, err)

	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	cs, err := Open(db, engine)
	require.NoError(t, err)
	return cs
}

func header(parent *types.HeaderInfo, tag byte) *types.HeaderInfo {
	h := &types.HeaderInfo{
		BlockHash:     types.BlockHeaderHash{tag},
		ConsensusHash: types.ConsensusHash{tag},
	}
	if parent != nil {
		h.BlockHeight = parent.BlockHeight + 1
		h.BurnHeaderHeight = parent.BurnHeaderHeight + 1
		h.ParentBlockHash = parent.BlockHash
		h.ParentConsensusHash = parent.ConsensusHash
	}
	h.BlockHash[1] = byte(h.BlockHeight)
	h.ConsensusHash[1] = byte(h.BlockHeight)
	return h
}

func minerSchedule(h *types.HeaderInfo, addr crypto.Address, coinbase, commit uint64) *rewards.MinerPaymentSchedule {
	return &rewards.MinerPaymentSchedule{
		Address:             addr,
		BlockHash:           h.BlockHash,
		ConsensusHash:       h.ConsensusHash,
		ParentBlockHash:     h.ParentBlockHash,
		ParentConsensusHash: h.ParentConsensusHash,
		Coinbase:            uint256.NewInt(coinbase),
		TxFeesAnchored:      uint256.NewInt(0),
		TxFeesStreamed:      uint256.NewInt(0),
		StxBurns:            uint256.NewInt(0),
		BurnchainCommitBurn: commit,
		Miner:               true,
		StacksBlockHeight:   h.BlockHeight,
	}
}

func balanceOf(t *testing.T, cs *Chainstate, addr crypto.Address) uint64 {
	t.Helper()
	bal, err := cs.State().STXBalance(types.StandardPrincipal(addr))
	require.NoError(t, err)
	return bal.AmountUnlocked.Uint64()
}

// extend appends n empty blocks on top of parent and returns the new tip.
func extend(t *testing.T, cs *Chainstate, parent *types.HeaderInfo, n int, tag byte) *types.HeaderInfo {
	t.Helper()
	for i := 0; i < n; i++ {
		next := header(parent, tag)
		_, err := cs.AdvanceTip(parent, Block{Header: next})
		require.NoError(t, err)
		parent = next
	}
	return parent
}

func TestAdvanceTipCreditsMaturedRewards(t *testing.T) {
	cs := newTestChainstate(t, 2)
	miner, supporter := testAddress(0x01), testAddress(0x02)

	genesis := header(nil, 0xa0)
	_, err := cs.AdvanceTip(nil, Block{Header: genesis})
	require.NoError(t, err)

	h1 := header(genesis, 0xa0)
	_, err = cs.AdvanceTip(genesis, Block{
		Header:   h1,
		Schedule: minerSchedule(h1, miner, 500, 1000),
		Supports: []rewards.UserBurnSupport{{Address: supporter, BurnAmount: 3000, VtxIndex: 1}},
	})
	require.NoError(t, err)

	tip := extend(t, cs, h1, 2, 0xa0)
	require.Zero(t, balanceOf(t, cs, miner))

	next := header(tip, 0xa0)
	res, err := cs.AdvanceTip(tip, Block{Header: next})
	require.NoError(t, err)
	require.NotNil(t, res.Matured)
	require.Equal(t, uint64(1), res.Matured.RewardHeight)
	require.Equal(t, uint64(125), balanceOf(t, cs, miner))
	require.Equal(t, uint64(375), balanceOf(t, cs, supporter))

	var paid int
	for _, evt := range res.Events {
		if evt.Type == events.TypeRewardPaid {
			paid++
		}
	}
	require.Equal(t, 2, paid)

	stored, err := cs.Tip()
	require.NoError(t, err)
	require.Equal(t, next.IndexHash(), stored.IndexHash())
	root, err := cs.StateRootAt(next.IndexHash())
	require.NoError(t, err)
	require.Equal(t, cs.Root(), root)
}

func TestAdvanceTipPoisonedRewards(t *testing.T) {
	cs := newTestChainstate(t, 2)
	miner, supporter, reporter := testAddress(0x01), testAddress(0x02), testAddress(0x03)

	genesis := header(nil, 0xb0)
	_, err := cs.AdvanceTip(nil, Block{Header: genesis})
	require.NoError(t, err)

	h1 := header(genesis, 0xb0)
	_, err = cs.AdvanceTip(genesis, Block{
		Header:   h1,
		Schedule: minerSchedule(h1, miner, 500, 1000),
		Supports: []rewards.UserBurnSupport{{Address: supporter, BurnAmount: 3000, VtxIndex: 1}},
	})
	require.NoError(t, err)

	h2 := header(h1, 0xb0)
	_, err = cs.AdvanceTip(h1, Block{Header: h2, Apply: func(l *Ledger) error {
		return l.State().SetPoisonMicroblockReport(1, types.StandardPrincipal(reporter), 4)
	}})
	require.NoError(t, err)

	tip := extend(t, cs, h2, 2, 0xb0)
	_ = tip
	require.Zero(t, balanceOf(t, cs, miner))
	require.Zero(t, balanceOf(t, cs, supporter))
	require.Equal(t, uint64(6), balanceOf(t, cs, reporter))
	require.Equal(t, uint64(375), balanceOf(t, cs, crypto.BurnAddress(false)))
}

func TestAdvanceTipRollsBackOnFailure(t *testing.T) {
	cs := newTestChainstate(t, 2)
	holder := testAddress(0x04)

	genesis := header(nil, 0xc0)
	_, err := cs.AdvanceTip(nil, Block{Header: genesis, Apply: func(l *Ledger) error {
		return l.AccountGenesisCredit(types.StandardPrincipal(holder), uint256.NewInt(100))
	}})
	require.NoError(t, err)
	rootBefore := cs.Root()

	failure := errors.New("block rejected")
	h1 := header(genesis, 0xc0)
	_, err = cs.AdvanceTip(genesis, Block{
		Header:   h1,
		Schedule: minerSchedule(h1, holder, 500, 1000),
		Apply: func(l *Ledger) error {
			if err := l.AccountDebit(types.StandardPrincipal(holder), uint256.NewInt(40)); err != nil {
				return err
			}
			return failure
		},
	})
	require.ErrorIs(t, err, failure)
	require.Equal(t, rootBefore, cs.Root())
	require.Equal(t, uint64(100), balanceOf(t, cs, holder))

	stored, err := cs.Engine().Store().Header(h1.IndexHash())
	require.NoError(t, err)
	require.Nil(t, stored)
	rows, err := cs.Engine().Store().PaymentsForBlock(h1.ConsensusHash, h1.BlockHash)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSiblingBlocksStartFromParentState(t *testing.T) {
	cs := newTestChainstate(t, 2)
	alice := testAddress(0x06)

	g := header(nil, 0xe0)
	_, err := cs.AdvanceTip(nil, Block{Header: g})
	require.NoError(t, err)
	genesisRoot, err := cs.StateRootAt(g.IndexHash())
	require.NoError(t, err)

	a1 := header(g, 0xe1)
	_, err = cs.AdvanceTip(g, Block{Header: a1, Apply: func(l *Ledger) error {
		return l.AccountCredit(types.StandardPrincipal(alice), uint256.NewInt(50))
	}})
	require.NoError(t, err)

	b1 := header(g, 0xe2)
	res, err := cs.AdvanceTip(g, Block{Header: b1})
	require.NoError(t, err)
	require.Equal(t, genesisRoot, res.Root)

	b2 := extend(t, cs, b1, 1, 0xe2)
	require.Equal(t, b2.IndexHash(), mustTip(t, cs).IndexHash())
	require.Zero(t, balanceOf(t, cs, alice))

	a3 := extend(t, cs, a1, 2, 0xe1)
	require.Equal(t, a3.IndexHash(), mustTip(t, cs).IndexHash())
	require.Equal(t, uint64(50), balanceOf(t, cs, alice))
}

func TestRewardMaturingOnTwoForksPaysOncePerFork(t *testing.T) {
	cs := newTestChainstate(t, 1)
	miner := testAddress(0x07)

	g := header(nil, 0xf0)
	_, err := cs.AdvanceTip(nil, Block{Header: g})
	require.NoError(t, err)
	h1 := header(g, 0xf0)
	_, err = cs.AdvanceTip(g, Block{Header: h1, Schedule: minerSchedule(h1, miner, 500, 1000)})
	require.NoError(t, err)

	x3 := extend(t, cs, h1, 2, 0xf1)
	require.Equal(t, uint64(500), balanceOf(t, cs, miner))

	y4 := extend(t, cs, h1, 3, 0xf2)
	require.Equal(t, y4.IndexHash(), mustTip(t, cs).IndexHash())
	require.Equal(t, uint64(500), balanceOf(t, cs, miner))

	x5 := extend(t, cs, x3, 2, 0xf1)
	require.Equal(t, x5.IndexHash(), mustTip(t, cs).IndexHash())
	require.Equal(t, uint64(500), balanceOf(t, cs, miner))
}

func TestOpenLoadsCanonicalTipState(t *testing.T) {
	cs := newTestChainstate(t, 2)
	alice := testAddress(0x08)

	g := header(nil, 0x90)
	_, err := cs.AdvanceTip(nil, Block{Header: g})
	require.NoError(t, err)
	a1 := header(g, 0x91)
	_, err = cs.AdvanceTip(g, Block{Header: a1, Apply: func(l *Ledger) error {
		return l.AccountCredit(types.StandardPrincipal(alice), uint256.NewInt(9))
	}})
	require.NoError(t, err)

	reopened, err := Open(cs.db, cs.Engine())
	require.NoError(t, err)
	want, err := cs.StateRootAt(a1.IndexHash())
	require.NoError(t, err)
	require.Equal(t, want, reopened.Root())
	require.Equal(t, uint64(1), reopened.State().ChainHeight())
	require.Equal(t, uint64(9), balanceOf(t, reopened, alice))
}

func mustTip(t *testing.T, cs *Chainstate) *types.HeaderInfo {
	t.Helper()
	tip, err := cs.Tip()
	require.NoError(t, err)
	require.NotNil(t, tip)
	return tip
}

func TestAdvanceTipRejectsNonChild(t *testing.T) {
	cs := newTestChainstate(t, 2)
	genesis := header(nil, 0xd0)
	_, err := cs.AdvanceTip(nil, Block{Header: genesis})
	require.NoError(t, err)

	orphan := header(genesis, 0xd1)
	orphan.ParentBlockHash = types.BlockHeaderHash{0xff}
	_, err = cs.AdvanceTip(genesis, Block{Header: orphan})
	require.ErrorIs(t, err, ErrNotChild)
}

func TestLedgerOperations(t *testing.T) {
	cs := newTestChainstate(t, 2)
	alice := types.StandardPrincipal(testAddress(0x05))

	_, flat, err := cs.Transition(1, func(l *Ledger) error {
		if err := l.AccountCredit(alice, uint256.NewInt(100)); err != nil {
			return err
		}
		if err := l.UpdateAccountNonce(alice); err != nil {
			return err
		}
		return l.PoxLock(alice, uint256.NewInt(60), 10)
	})
	require.NoError(t, err)
	require.Len(t, flat, 1)
	require.Equal(t, events.TypeSTXLock, flat[0].Type)

	account, err := cs.State().GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.Nonce)
	require.Equal(t, uint64(40), account.Balance.AmountUnlocked.Uint64())
	require.Equal(t, uint64(60), account.Balance.AmountLocked.Uint64())

	_, _, err = cs.Transition(2, func(l *Ledger) error {
		return l.PoxLock(alice, uint256.NewInt(10), 20)
	})
	require.ErrorIs(t, err, state.ErrPoxAlreadyLocked)

	require.Panics(t, func() {
		_, _, _ = cs.Transition(2, func(l *Ledger) error {
			return l.AccountDebit(alice, uint256.NewInt(41))
		})
	})
}

func TestApplyGenesisOnlyOnce(t *testing.T) {
	cs := newTestChainstate(t, 2)
	_, _, err := cs.Transition(0, func(l *Ledger) error {
		return l.State().SetStateVersion(state.StateVersion)
	})
	require.NoError(t, err)
	_, err = cs.ApplyGenesis(nil)
	require.ErrorIs(t, err, ErrNotGenesis)
}
