// Package trie holds the ledger state in a Merkle Patricia trie over a
// storage.Database. Every committed root stays readable, so callers can move
// between the states of sibling blocks with Reset.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"

	"settlechain/storage"
)

// Trie is a working copy of the ledger state anchored at a committed root.
// Writes stay in memory until Commit; Reset drops them. Not safe for
// concurrent use.
type Trie struct {
	nodes   *triedb.Database
	working *gethtrie.Trie
	anchor  common.Hash
}

// NewTrie opens the state at root. An empty root opens the empty state.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	anchor := gethtypes.EmptyRootHash
	if len(root) > 0 {
		anchor = common.BytesToHash(root)
	}
	t := &Trie{nodes: store.TrieDB()}
	if err := t.Reset(anchor); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) Get(key []byte) ([]byte, error) { return t.working.Get(key) }

func (t *Trie) Update(key, value []byte) error { return t.working.Update(key, value) }

// Hash is the root including uncommitted writes.
func (t *Trie) Hash() common.Hash { return t.working.Hash() }

// Root is the committed root the working copy is anchored at.
func (t *Trie) Root() common.Hash { return t.anchor }

// Reset anchors the working copy at root, dropping uncommitted writes. The
// root must have been committed to the same node database.
func (t *Trie) Reset(root common.Hash) error {
	working, err := gethtrie.New(gethtrie.TrieID(root), t.nodes)
	if err != nil {
		return fmt.Errorf("trie: open root %s: %w", root.Hex(), err)
	}
	t.working = working
	t.anchor = root
	return nil
}

// Commit flushes the pending writes as the child of parent at height and
// re-anchors the working copy at the resulting root.
func (t *Trie) Commit(parent common.Hash, height uint64) (common.Hash, error) {
	root, dirty := t.working.Commit(false)
	if dirty != nil {
		set := trienode.NewMergedNodeSet()
		if err := set.Merge(dirty); err != nil {
			return common.Hash{}, err
		}
		if err := t.nodes.Update(root, parent, height, set, nil); err != nil {
			return common.Hash{}, fmt.Errorf("trie: update %d: %w", height, err)
		}
		if err := t.nodes.Commit(root, false); err != nil {
			return common.Hash{}, fmt.Errorf("trie: flush %d: %w", height, err)
		}
	}
	if err := t.Reset(root); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}
