package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"settlechain/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(common.Hash{}, 0)
	require.NoError(t, err)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieResetDiscardsUncommitted(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("balance"))
	require.NoError(t, tr.Update(key, []byte{1}))
	root, err := tr.Commit(common.Hash{}, 1)
	require.NoError(t, err)

	require.NoError(t, tr.Update(key, []byte{2}))
	require.NoError(t, tr.Reset(root))

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got)
}

func TestTrieResetMovesBetweenSiblingRoots(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)
	key := crypto.Keccak256([]byte("owner"))

	require.NoError(t, tr.Update(key, []byte("base")))
	base, err := tr.Commit(common.Hash{}, 0)
	require.NoError(t, err)

	require.NoError(t, tr.Update(key, []byte("left")))
	left, err := tr.Commit(base, 1)
	require.NoError(t, err)

	require.NoError(t, tr.Reset(base))
	require.NoError(t, tr.Update(key, []byte("right")))
	right, err := tr.Commit(base, 1)
	require.NoError(t, err)
	require.NotEqual(t, left, right)

	require.NoError(t, tr.Reset(left))
	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("left"), got)
	require.Equal(t, left, tr.Root())
}
