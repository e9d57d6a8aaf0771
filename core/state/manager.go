package state

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"settlechain/core/types"
	"settlechain/crypto"
	"settlechain/storage/trie"
)

// Manager reads and writes ledger records held in the state trie. Every
// mutation lands in the trie immediately; atomicity across a block comes from
// the caller committing or resetting the trie as a whole.
//
// A Manager is not safe for concurrent use. Block processing applies
// transactions sequentially against a single manager.
type Manager struct {
	trie        *trie.Trie
	chainHeight uint64
	log         *slog.Logger
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr, log: slog.Default()}
}

// WithLogger replaces the manager's logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	if logger != nil {
		m.log = logger
	}
	return m
}

// SetChainHeight records the height used to decide whether PoX locks have
// matured when balances are read.
func (m *Manager) SetChainHeight(height uint64) {
	m.chainHeight = height
}

// ChainHeight returns the height used for lazy unlocks.
func (m *Manager) ChainHeight() uint64 {
	return m.chainHeight
}

// Root returns the current (uncommitted) state root.
func (m *Manager) Root() common.Hash {
	return m.trie.Hash()
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the trie.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// principalRecord is the storage form of a principal.
type principalRecord struct {
	Prefix string
	Hash   []byte
	Name   string
}

func encodePrincipal(p types.Principal) principalRecord {
	return principalRecord{
		Prefix: string(p.Address.Prefix()),
		Hash:   p.Address.Bytes(),
		Name:   p.Name,
	}
}

func (r principalRecord) decode() (types.Principal, error) {
	addr, err := crypto.NewAddress(crypto.AddressPrefix(r.Prefix), r.Hash)
	if err != nil {
		return types.Principal{}, fmt.Errorf("state: stored principal: %w", err)
	}
	return types.Principal{Address: addr, Name: r.Name}, nil
}
