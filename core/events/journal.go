package events

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"settlechain/core/types"
)

var bucketEvents = []byte("events")

// Journal persists flattened events in append order so operators can audit
// settlement outcomes after the fact.
type Journal struct {
	db *bolt.DB
}

// OpenJournal opens (and creates when missing) a bolt-backed event journal.
func OpenJournal(path string, options *bolt.Options) (*Journal, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append stores the events in a single bolt transaction.
func (j *Journal) Append(evts ...*types.Event) error {
	if len(evts) == 0 {
		return nil
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		for _, evt := range evts {
			if evt == nil {
				continue
			}
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			raw, err := json.Marshal(evt)
			if err != nil {
				return fmt.Errorf("journal: encode %s: %w", evt.Type, err)
			}
			var key [8]byte
			binary.BigEndian.PutUint64(key[:], seq)
			if err := bucket.Put(key[:], raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns up to limit events whose height is at least fromHeight, oldest
// first. A zero limit returns every match.
func (j *Journal) List(fromHeight uint64, limit int) ([]types.Event, error) {
	var out []types.Event
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketEvents).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var evt types.Event
			if err := json.Unmarshal(v, &evt); err != nil {
				return fmt.Errorf("journal: decode entry %x: %w", k, err)
			}
			if evt.Height < fromHeight {
				continue
			}
			out = append(out, evt)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}
