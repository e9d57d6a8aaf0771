// Package chainstate ties the ledger state, the reward engine and the event
// journal together and advances them one block at a time.
package chainstate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"settlechain/core/events"
	"settlechain/core/genesis"
	"settlechain/core/rewards"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/crypto"
	"settlechain/observability"
	"settlechain/storage"
	"settlechain/storage/trie"
)

var (
	// ErrNotGenesis is returned when genesis is applied to a ledger that
	// already has state.
	ErrNotGenesis = errors.New("chainstate: ledger already initialized")
	// ErrNotChild is returned when a header does not extend the given parent.
	ErrNotChild = errors.New("chainstate: header does not extend parent")
	// ErrUnknownBlock is returned when no state root is recorded for a block.
	ErrUnknownBlock = errors.New("chainstate: unknown block")
)

var (
	headRootKey    = []byte("chainstate/head")
	genesisRootKey = []byte("chainstate/genesis")
)

func blockRootKey(index common.Hash) []byte {
	return append([]byte("chainstate/root/"), index.Bytes()...)
}

// Chainstate owns the ledger trie and the payments store.
type Chainstate struct {
	mu sync.Mutex

	db      storage.Database
	trie    *trie.Trie
	state   *state.Manager
	engine  *rewards.Engine
	journal *events.Journal
	metrics *observability.SettlementMetrics
	log     *slog.Logger
}

// Open loads the ledger at the state of the canonical tip. Before the first
// block it loads the last committed head root, or an empty ledger when db is
// fresh.
func Open(db storage.Database, engine *rewards.Engine) (*Chainstate, error) {
	if db == nil {
		return nil, fmt.Errorf("chainstate: database must not be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("chainstate: reward engine must not be nil")
	}
	tip, err := engine.Store().CanonicalTip()
	if err != nil {
		return nil, fmt.Errorf("chainstate: load tip: %w", err)
	}
	var root []byte
	if tip != nil {
		if root, err = db.Get(blockRootKey(tip.IndexHash())); err != nil {
			return nil, fmt.Errorf("chainstate: load root of tip %s: %w", tip.IndexHash().Hex(), err)
		}
	} else if root, err = optionalRoot(db, headRootKey); err != nil {
		return nil, fmt.Errorf("chainstate: load head: %w", err)
	}
	tr, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("chainstate: open trie: %w", err)
	}
	if err := state.EnsureStateVersion(tr); err != nil {
		return nil, err
	}
	cs := &Chainstate{
		db:     db,
		trie:   tr,
		state:  state.NewManager(tr),
		engine: engine,
		log:    slog.Default(),
	}
	if tip != nil {
		cs.state.SetChainHeight(tip.BlockHeight)
	}
	return cs, nil
}

func optionalRoot(db storage.Database, key []byte) ([]byte, error) {
	raw, err := db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return raw, err
}

// SetLogger replaces the logger used for settlement messages.
func (c *Chainstate) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = logger
	c.state.WithLogger(logger)
}

// SetMetrics enables prometheus instrumentation.
func (c *Chainstate) SetMetrics(m *observability.SettlementMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// SetJournal persists the events of every committed transition.
func (c *Chainstate) SetJournal(j *events.Journal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal = j
}

// State returns the ledger view. Mutations outside a transition are lost on
// the next transition rollback.
func (c *Chainstate) State() *state.Manager { return c.state }

// View runs fn against the ledger while no transition is in progress.
func (c *Chainstate) View(fn func(*state.Manager) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.state)
}

// Engine returns the reward engine.
func (c *Chainstate) Engine() *rewards.Engine { return c.engine }

// Root returns the last committed state root.
func (c *Chainstate) Root() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trie.Root()
}

// Tip returns the canonical tip recorded in the payments store, or nil
// before the first block.
func (c *Chainstate) Tip() (*types.HeaderInfo, error) {
	return c.engine.Store().CanonicalTip()
}

// StateRootAt returns the state root committed for the block with the given
// index hash.
func (c *Chainstate) StateRootAt(index common.Hash) (common.Hash, error) {
	raw, err := c.db.Get(blockRootKey(index))
	if errors.Is(err, storage.ErrNotFound) {
		return common.Hash{}, ErrUnknownBlock
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

// Transition runs fn against the ledger at height. When fn succeeds the trie
// is committed and the recorded events are journaled; otherwise every
// mutation fn made is discarded.
func (c *Chainstate) Transition(height uint64, fn func(*Ledger) error) (common.Hash, []*types.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	root, flat, err := c.transitionLocked(height, fn, nil)
	if err != nil {
		return common.Hash{}, nil, err
	}
	c.publish(height, flat)
	return root, flat, nil
}

func (c *Chainstate) transitionLocked(height uint64, fn func(*Ledger) error, persist func(root common.Hash) error) (common.Hash, []*types.Event, error) {
	parentRoot := c.trie.Root()
	prevHeight := c.state.ChainHeight()
	c.state.SetChainHeight(height)

	rollback := func(cause error) (common.Hash, []*types.Event, error) {
		c.state.SetChainHeight(prevHeight)
		if err := c.trie.Reset(parentRoot); err != nil {
			return common.Hash{}, nil, fmt.Errorf("chainstate: rollback after %v: %w", cause, err)
		}
		c.metrics.RecordTransition(false)
		return common.Hash{}, nil, cause
	}

	recorder := &events.Recorder{}
	if err := fn(newLedger(c.state, recorder, c.log)); err != nil {
		return rollback(err)
	}
	root, err := c.trie.Commit(parentRoot, height)
	if err != nil {
		return rollback(fmt.Errorf("chainstate: commit: %w", err))
	}
	if persist != nil {
		if err := persist(root); err != nil {
			return rollback(err)
		}
	}
	if err := c.db.Put(headRootKey, root.Bytes()); err != nil {
		return rollback(fmt.Errorf("chainstate: store head: %w", err))
	}

	c.metrics.RecordTransition(true)
	return root, recorder.Flatten(height), nil
}

// publish journals the events of a committed transition. A journal failure
// is logged and does not undo the transition.
func (c *Chainstate) publish(height uint64, flat []*types.Event) {
	if c.journal != nil {
		if err := c.journal.Append(flat...); err != nil {
			c.log.Error("event journal append failed", slog.Any("error", err), slog.Uint64("height", height))
		}
	}
	for _, evt := range flat {
		observability.Events().RecordEvent(evt.Type)
	}
}

// ApplyGenesis writes spec into an empty ledger and stamps the schema
// version. The resulting root is the state parentless blocks build on.
func (c *Chainstate) ApplyGenesis(spec *genesis.GenesisSpec) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok, err := c.state.StateVersion(); err != nil {
		return common.Hash{}, err
	} else if ok {
		return common.Hash{}, ErrNotGenesis
	}
	root, flat, err := c.transitionLocked(0, func(l *Ledger) error {
		if err := genesis.Apply(spec, l.State()); err != nil {
			return err
		}
		return l.State().SetStateVersion(state.StateVersion)
	}, func(root common.Hash) error {
		return c.db.Put(genesisRootKey, root.Bytes())
	})
	if err != nil {
		return common.Hash{}, err
	}
	c.publish(0, flat)
	c.log.Info("genesis applied", slog.String("root", root.Hex()))
	return root, nil
}

// Block is the input of AdvanceTip.
type Block struct {
	Header *types.HeaderInfo
	// Schedule is the block's own coinbase schedule; nil for blocks that
	// schedule nothing.
	Schedule *rewards.MinerPaymentSchedule
	Supports []rewards.UserBurnSupport
	// Apply executes the block's transactions. May be nil.
	Apply func(*Ledger) error
}

// AdvanceResult describes the outcome of appending one block.
type AdvanceResult struct {
	Root    common.Hash
	Matured *rewards.MaturedRewards
	Events  []*types.Event
}

// baseRoot is the state a child of parent starts from: the root committed
// for parent, or for a parentless block the genesis root (the empty state
// when no genesis was applied).
func (c *Chainstate) baseRoot(parent *types.HeaderInfo) (common.Hash, error) {
	if parent != nil {
		root, err := c.StateRootAt(parent.IndexHash())
		if err != nil {
			return common.Hash{}, fmt.Errorf("chainstate: parent %s: %w", parent.IndexHash().Hex(), err)
		}
		return root, nil
	}
	raw, err := optionalRoot(c.db, genesisRootKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chainstate: load genesis root: %w", err)
	}
	if raw == nil {
		return gethtypes.EmptyRootHash, nil
	}
	return common.BytesToHash(raw), nil
}

// followCanonical re-anchors the ledger at the canonical tip's state.
func (c *Chainstate) followCanonical(store *rewards.Store) error {
	tip, err := store.CanonicalTip()
	if err != nil || tip == nil {
		return err
	}
	root, err := c.StateRootAt(tip.IndexHash())
	if err != nil {
		return err
	}
	if root != c.trie.Root() {
		if err := c.trie.Reset(root); err != nil {
			return err
		}
	}
	c.state.SetChainHeight(tip.BlockHeight)
	return c.db.Put(headRootKey, root.Bytes())
}

// AdvanceTip appends block on top of parent. The block starts from the state
// committed for parent, so sibling blocks never see each other's effects. It
// runs the block's transactions, credits the rewards that mature relative to
// parent, records the header and schedule, and commits the ledger. Either
// all of it takes effect or none of it does. Afterwards the ledger view
// follows the canonical tip, which need not be the new block.
func (c *Chainstate) AdvanceTip(parent *types.HeaderInfo, block Block) (*AdvanceResult, error) {
	start := time.Now()
	header := block.Header
	if header == nil {
		return nil, fmt.Errorf("chainstate: header must not be nil")
	}
	if parent != nil {
		if header.ParentIndexHash() != parent.IndexHash() || header.BlockHeight != parent.BlockHeight+1 {
			return nil, fmt.Errorf("%w: %s at %d onto %s at %d", ErrNotChild,
				header.IndexHash().Hex(), header.BlockHeight, parent.IndexHash().Hex(), parent.BlockHeight)
		}
	} else if header.BlockHeight != 0 {
		return nil, fmt.Errorf("%w: parentless header at height %d", ErrNotChild, header.BlockHeight)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.engine.Store()
	headRoot := c.trie.Root()
	headHeight := c.state.ChainHeight()
	rootWritten := false
	restore := func(cause error) (*AdvanceResult, error) {
		c.state.SetChainHeight(headHeight)
		if err := c.trie.Reset(headRoot); err != nil {
			return nil, fmt.Errorf("chainstate: rollback after %v: %w", cause, err)
		}
		if err := c.db.Put(headRootKey, headRoot.Bytes()); err != nil {
			return nil, fmt.Errorf("chainstate: rollback after %v: %w", cause, err)
		}
		if rootWritten {
			if err := c.db.Delete(blockRootKey(header.IndexHash())); err != nil {
				return nil, fmt.Errorf("chainstate: rollback after %v: %w", cause, err)
			}
		}
		return nil, cause
	}

	base, err := c.baseRoot(parent)
	if err != nil {
		return nil, err
	}
	if err := c.trie.Reset(base); err != nil {
		return restore(fmt.Errorf("chainstate: load parent state: %w", err))
	}
	var parentHeight uint64
	if parent != nil {
		parentHeight = parent.BlockHeight
	}
	c.state.SetChainHeight(parentHeight)

	var matured *rewards.MaturedRewards
	if parent != nil {
		rows, err := c.engine.GetScheduledBlockRewards(store, parent)
		if err != nil {
			return restore(fmt.Errorf("chainstate: scheduled rewards: %w", err))
		}
		if matured, err = c.engine.FindMatureMinerRewards(parent, rows, c.state); err != nil {
			return restore(err)
		}
	}

	var root common.Hash
	var flat []*types.Event
	committed := false
	err = store.Transaction(func(tx *rewards.Store) error {
		if err := tx.PutHeader(header); err != nil {
			return fmt.Errorf("chainstate: put header: %w", err)
		}
		if block.Schedule != nil {
			if err := tx.InsertMinerPaymentSchedule(block.Schedule, block.Supports); err != nil {
				return fmt.Errorf("chainstate: insert schedule: %w", err)
			}
		}
		var err error
		root, flat, err = c.transitionLocked(header.BlockHeight, func(l *Ledger) error {
			if block.Apply != nil {
				if err := block.Apply(l); err != nil {
					return err
				}
			}
			return c.creditMatured(l, header.BlockHeight, matured)
		}, func(root common.Hash) error {
			if err := c.db.Put(blockRootKey(header.IndexHash()), root.Bytes()); err != nil {
				return err
			}
			rootWritten = true
			return nil
		})
		committed = err == nil
		return err
	})
	if err != nil {
		if committed {
			// The ledger committed but the payments transaction did not.
			c.metrics.RecordTransition(false)
		}
		return restore(err)
	}
	c.publish(header.BlockHeight, flat)
	if err := c.followCanonical(store); err != nil {
		c.log.Error("ledger view not moved to canonical tip", slog.Any("error", err))
	}

	c.metrics.ObserveBlock(header.BlockHeight, time.Since(start))
	c.log.Debug("tip advanced",
		slog.Uint64("height", header.BlockHeight),
		slog.String("index_block_hash", header.IndexHash().Hex()),
		slog.String("root", root.Hex()),
		slog.Bool("rewards_matured", matured != nil))
	return &AdvanceResult{Root: root, Matured: matured, Events: flat}, nil
}

func (c *Chainstate) creditMatured(l *Ledger, height uint64, matured *rewards.MaturedRewards) error {
	if matured == nil {
		return nil
	}
	burn := crypto.BurnAddress(c.engine.Config().Mainnet)
	for i, reward := range matured.All() {
		recipient := types.StandardPrincipal(reward.Address)
		total := reward.Total()
		if err := l.AccountCredit(recipient, total); err != nil {
			return fmt.Errorf("chainstate: credit %s: %w", recipient, err)
		}
		l.Events().Emit(events.RewardPaid{
			Recipient:     recipient,
			Coinbase:      reward.Coinbase,
			Total:         total,
			VtxIndex:      reward.VtxIndex,
			FromBlock:     matured.Info.FromStacksBlockHash,
			FromConsensus: matured.Info.FromBlockConsensusHash,
		})
		c.metrics.RecordPayout(payoutRole(i, matured.Poisoned, reward.Address == burn), total)
	}
	if matured.Poisoned {
		c.metrics.RecordPoisoned()
	}
	l.Events().Emit(events.RewardsMatured{
		Height:        height,
		RewardHeight:  matured.RewardHeight,
		FromBlock:     matured.Info.FromStacksBlockHash,
		FromConsensus: matured.Info.FromBlockConsensusHash,
		Payouts:       1 + len(matured.Users),
		Poisoned:      matured.Poisoned,
	})
	return nil
}

func payoutRole(index int, poisoned, burned bool) string {
	switch {
	case index == 0 && poisoned:
		return "reporter"
	case index == 0:
		return "miner"
	case burned:
		return "burn"
	default:
		return "supporter"
	}
}
