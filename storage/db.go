package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by Get when the key is absent from the store.
var ErrNotFound = errors.New("storage: key not found")

// Database is the key/value store backing the ledger state. Both backends
// expose a trie node database so the state trie and raw lookups share the same
// underlying storage.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	TrieDB() *triedb.Database
	Close()
}

// kvStore carries the pieces both backends share: the raw store and a lazily
// created trie database layered on top of it.
type kvStore struct {
	kv ethdb.KeyValueStore

	trieOnce sync.Once
	trieDB   *triedb.Database
}

func (s *kvStore) Put(key []byte, value []byte) error {
	return s.kv.Put(key, value)
}

func (s *kvStore) Has(key []byte) (bool, error) {
	return s.kv.Has(key)
}

func (s *kvStore) Delete(key []byte) error {
	return s.kv.Delete(key)
}

// TrieDB returns the trie node database for this store. The same instance is
// returned for every call so committed tries remain visible to later readers.
func (s *kvStore) TrieDB() *triedb.Database {
	s.trieOnce.Do(func() {
		s.trieDB = triedb.NewDatabase(rawdb.NewDatabase(s.kv), triedb.HashDefaults)
	})
	return s.trieDB
}

func (s *kvStore) close() {
	if s.trieDB != nil {
		_ = s.trieDB.Close()
	}
	_ = s.kv.Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	kvStore
}

func NewMemDB() *MemDB {
	return &MemDB{kvStore: kvStore{kv: memorydb.New()}}
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	ok, err := db.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return db.kv.Get(key)
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	db.close()
}

// --- Persistent DB ---

// LevelDBOptions tunes the LevelDB backend. Zero values keep the goleveldb
// defaults.
type LevelDBOptions struct {
	CacheMB     int
	OpenFiles   int
	ReadOnly    bool
	NoSync      bool
	Compression bool
}

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	kvStore
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	return NewLevelDBWithOptions(path, LevelDBOptions{})
}

// NewLevelDBWithOptions opens the database at path, applying the supplied
// tuning on top of the goleveldb defaults.
func NewLevelDBWithOptions(path string, o LevelDBOptions) (*LevelDB, error) {
	db, err := gethleveldb.NewCustom(path, "", func(options *opt.Options) {
		if o.CacheMB > 0 {
			options.BlockCacheCapacity = o.CacheMB / 2 * opt.MiB
			options.WriteBuffer = o.CacheMB / 4 * opt.MiB
		}
		if o.OpenFiles > 0 {
			options.OpenFilesCacheCapacity = o.OpenFiles
		}
		options.ReadOnly = o.ReadOnly
		options.NoSync = o.NoSync
		if !o.Compression {
			options.Compression = opt.NoCompression
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDB{kvStore: kvStore{kv: db}}, nil
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.kv.Get(key)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.close()
}
