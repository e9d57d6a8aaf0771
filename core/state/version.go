package state

import (
	"errors"
	"fmt"

	"settlechain/storage/trie"
)

// StateVersion is the record layout this binary reads and writes. Bump it
// with every change to a stored encoding.
const StateVersion uint32 = 1

// ErrStateVersionMismatch reports a ledger written with another layout.
var ErrStateVersionMismatch = errors.New("state: schema version mismatch")

var stateVersionKey = []byte("state/version")

type versionRecord struct {
	Layout uint32
}

// SetStateVersion stamps the ledger with a layout version. Genesis stamps it
// once; a stamped ledger is never genesis again.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.KVPut(stateVersionKey, versionRecord{Layout: version})
}

// StateVersion reports the stamped layout version, if any.
func (m *Manager) StateVersion() (uint32, bool, error) {
	var rec versionRecord
	ok, err := m.KVGet(stateVersionKey, &rec)
	if err != nil {
		return 0, false, fmt.Errorf("state: read version: %w", err)
	}
	return rec.Layout, ok, nil
}

// EnsureStateVersion refuses a ledger stamped with a different layout. An
// unstamped ledger passes so genesis can still be applied to it.
func EnsureStateVersion(tr *trie.Trie) error {
	version, ok, err := NewManager(tr).StateVersion()
	switch {
	case err != nil:
		return err
	case ok && version != StateVersion:
		return fmt.Errorf("%w: ledger has %d, binary expects %d", ErrStateVersionMismatch, version, StateVersion)
	}
	return nil
}
