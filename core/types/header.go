package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// BlockHeaderHash is the hash of an anchored block header.
type BlockHeaderHash [32]byte

// ConsensusHash identifies the sortition that selected a block.
type ConsensusHash [20]byte

func (h BlockHeaderHash) String() string { return hex.EncodeToString(h[:]) }
func (h ConsensusHash) String() string   { return hex.EncodeToString(h[:]) }

// ParseBlockHeaderHash decodes a hex encoded block hash.
func ParseBlockHeaderHash(s string) (BlockHeaderHash, error) {
	var out BlockHeaderHash
	if err := decodeFixedHex(s, out[:]); err != nil {
		return out, fmt.Errorf("block hash: %w", err)
	}
	return out, nil
}

// ParseConsensusHash decodes a hex encoded consensus hash.
func ParseConsensusHash(s string) (ConsensusHash, error) {
	var out ConsensusHash
	if err := decodeFixedHex(s, out[:]); err != nil {
		return out, fmt.Errorf("consensus hash: %w", err)
	}
	return out, nil
}

func decodeFixedHex(s string, dst []byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// IndexBlockHash binds a block hash to the sortition that produced it so that
// the same block mined in two forks yields two distinct identifiers.
func IndexBlockHash(consensus ConsensusHash, block BlockHeaderHash) common.Hash {
	return ethcrypto.Keccak256Hash(block[:], consensus[:])
}

// HeaderInfo describes an accepted block as seen by the settlement layer.
type HeaderInfo struct {
	BlockHash           BlockHeaderHash
	ConsensusHash       ConsensusHash
	ParentBlockHash     BlockHeaderHash
	ParentConsensusHash ConsensusHash
	BlockHeight         uint64
	BurnHeaderHeight    uint64
}

// IndexHash returns the fork-unique identifier of the header.
func (h *HeaderInfo) IndexHash() common.Hash {
	return IndexBlockHash(h.ConsensusHash, h.BlockHash)
}

// ParentIndexHash returns the fork-unique identifier of the parent header.
func (h *HeaderInfo) ParentIndexHash() common.Hash {
	return IndexBlockHash(h.ParentConsensusHash, h.ParentBlockHash)
}
