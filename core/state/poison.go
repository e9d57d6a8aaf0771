package state

import (
	"fmt"

	"settlechain/core/types"
)

// PoisonReport names the principal that proved a miner forked its microblock
// stream at some height, with the reported sequence number.
type PoisonReport struct {
	Reporter types.Principal
	Sequence uint16
}

type poisonRecord struct {
	Reporter principalRecord
	Sequence uint16
}

// SetPoisonMicroblockReport stores the report for height. Only the first
// report for a height is kept.
func (m *Manager) SetPoisonMicroblockReport(height uint64, reporter types.Principal, seq uint16) error {
	exists, err := m.KVGet(PoisonReportKey(height), nil)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.KVPut(PoisonReportKey(height), &poisonRecord{Reporter: encodePrincipal(reporter), Sequence: seq})
}

// PoisonMicroblockReport returns the report recorded for height, or nil.
func (m *Manager) PoisonMicroblockReport(height uint64) (*PoisonReport, error) {
	var rec poisonRecord
	ok, err := m.KVGet(PoisonReportKey(height), &rec)
	if err != nil {
		return nil, fmt.Errorf("state: load poison report at %d: %w", height, err)
	}
	if !ok {
		return nil, nil
	}
	reporter, err := rec.Reporter.decode()
	if err != nil {
		return nil, err
	}
	return &PoisonReport{Reporter: reporter, Sequence: rec.Sequence}, nil
}
