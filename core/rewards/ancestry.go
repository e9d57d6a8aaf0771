package rewards

import (
	"fmt"

	"settlechain/core/types"
)

// AncestorIndex locates the block at a given height in the fork that ends at
// tip. It is the sole authority on which of several same-height candidates
// is canonical for that fork. A nil header means the fork has no block at
// that height.
type AncestorIndex interface {
	TipAncestor(tip *types.HeaderInfo, height uint64) (*types.HeaderInfo, error)
}

// HeaderAncestry walks parent links recorded in the payments store.
type HeaderAncestry struct {
	store *Store
}

// NewHeaderAncestry returns an AncestorIndex over the store's header table.
func NewHeaderAncestry(store *Store) *HeaderAncestry {
	return &HeaderAncestry{store: store}
}

// TipAncestor implements AncestorIndex.
func (a *HeaderAncestry) TipAncestor(tip *types.HeaderInfo, height uint64) (*types.HeaderInfo, error) {
	if tip == nil || height > tip.BlockHeight {
		return nil, nil
	}
	cur := tip
	for cur.BlockHeight > height {
		parent, err := a.store.Header(cur.ParentIndexHash())
		if err != nil {
			return nil, fmt.Errorf("rewards: load parent of %s: %w", cur.IndexHash().Hex(), err)
		}
		if parent == nil {
			return nil, nil
		}
		if parent.BlockHeight+1 != cur.BlockHeight {
			return nil, fmt.Errorf("rewards: header %s at height %d has parent at height %d",
				cur.IndexHash().Hex(), cur.BlockHeight, parent.BlockHeight)
		}
		cur = parent
	}
	return cur, nil
}
