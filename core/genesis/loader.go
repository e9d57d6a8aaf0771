package genesis

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"settlechain/core/state"
	"settlechain/storage"
	"settlechain/storage/trie"
	"settlechain/vm/values"
)

// Apply writes the genesis allocations, locks and asset definitions into m.
// Balances are credited on top of whatever the principal already holds.
func Apply(spec *GenesisSpec, m *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if m == nil {
		return fmt.Errorf("state manager must not be nil")
	}

	for _, alloc := range spec.balances {
		snapshot, err := m.GenesisSnapshot(alloc.principal)
		if err != nil {
			return fmt.Errorf("alloc %s: %w", alloc.principal, err)
		}
		snapshot.Credit(alloc.amount)
		if err := snapshot.Save(); err != nil {
			return fmt.Errorf("alloc %s: %w", alloc.principal, err)
		}
	}

	for _, l := range spec.locks {
		snapshot, err := m.GenesisSnapshot(l.principal)
		if err != nil {
			return fmt.Errorf("lock %s: %w", l.principal, err)
		}
		if err := snapshot.LockTokens(l.amount, l.unlockHeight); err != nil {
			return fmt.Errorf("lock %s: %w", l.principal, err)
		}
		if err := snapshot.Save(); err != nil {
			return fmt.Errorf("lock %s: %w", l.principal, err)
		}
	}

	for _, ft := range spec.fungible {
		if err := m.DefineFungibleToken(ft.asset, ft.maxSupply); err != nil {
			return fmt.Errorf("fungible token %s: %w", ft.asset, err)
		}
	}
	for _, nft := range spec.nonFungible {
		keyType, err := values.EncodeType(nft.keyType)
		if err != nil {
			return fmt.Errorf("non-fungible token %s: %w", nft.asset, err)
		}
		if err := m.DefineNonFungibleToken(nft.asset, keyType); err != nil {
			return fmt.Errorf("non-fungible token %s: %w", nft.asset, err)
		}
	}
	return nil
}

// BuildGenesisFromSpec applies spec to an empty state over db, stamps the
// schema version and commits. It returns the genesis state root.
func BuildGenesisFromSpec(spec *GenesisSpec, db storage.Database) (common.Hash, error) {
	if db == nil {
		return common.Hash{}, fmt.Errorf("database must not be nil")
	}
	stateTrie, err := trie.NewTrie(db, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("init state trie: %w", err)
	}
	manager := state.NewManager(stateTrie)
	parentRoot := stateTrie.Root()

	if err := Apply(spec, manager); err != nil {
		return common.Hash{}, err
	}
	if err := manager.SetStateVersion(state.StateVersion); err != nil {
		return common.Hash{}, fmt.Errorf("stamp state version: %w", err)
	}

	root, err := stateTrie.Commit(parentRoot, 0)
	if err != nil {
		return common.Hash{}, fmt.Errorf("commit state: %w", err)
	}
	slog.Info("genesis state built",
		slog.String("root", root.Hex()),
		slog.Int("accounts", len(spec.balances)),
		slog.Int("locks", len(spec.locks)),
		slog.Time("genesis_time", spec.GenesisTimestamp()))
	return root, nil
}
