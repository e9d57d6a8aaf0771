package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"settlechain/core/invariant"
	"settlechain/core/types"
	"settlechain/core/u128"
)

// BalanceSnapshot is a scoped, mutable view of one principal's balance.
// Mutations stay in memory until Save writes them back; a snapshot that is
// dropped without Save leaves state untouched. Save is terminal: the snapshot
// cannot be mutated or saved again afterwards.
//
// Callers must not hold two live snapshots of the same principal.
type BalanceSnapshot struct {
	m         *Manager
	principal types.Principal
	balance   STXBalance
	height    uint64
	done      bool
}

// STXSnapshot opens a snapshot of p as of the manager's chain height. Matured
// locks are folded into the unlocked amount before the caller sees them, and
// the fold is persisted on Save.
func (m *Manager) STXSnapshot(p types.Principal) (*BalanceSnapshot, error) {
	stored, err := m.loadSTXBalance(p)
	if err != nil {
		return nil, err
	}
	return &BalanceSnapshot{
		m:         m,
		principal: p,
		balance:   stored.unlocked(m.chainHeight),
		height:    m.chainHeight,
	}, nil
}

// GenesisSnapshot opens a snapshot without applying lock maturity; used by
// the boot sequence only.
func (m *Manager) GenesisSnapshot(p types.Principal) (*BalanceSnapshot, error) {
	stored, err := m.loadSTXBalance(p)
	if err != nil {
		return nil, err
	}
	return &BalanceSnapshot{m: m, principal: p, balance: stored}, nil
}

func (s *BalanceSnapshot) ensureOpen() {
	invariant.Check(!s.done, "balance snapshot for %s used after save", s.principal)
}

// Principal returns the owner of the snapshot.
func (s *BalanceSnapshot) Principal() types.Principal { return s.principal }

// Balance returns a copy of the in-memory balance.
func (s *BalanceSnapshot) Balance() STXBalance { return s.balance.Clone() }

// AvailableBalance returns the transferable amount.
func (s *BalanceSnapshot) AvailableBalance() *uint256.Int {
	return new(uint256.Int).Set(s.balance.AmountUnlocked)
}

// HasLockedTokens reports whether an unmatured lock is present.
func (s *BalanceSnapshot) HasLockedTokens() bool {
	return s.balance.HasLockedTokens()
}

// CanTransfer reports whether amount can leave the unlocked balance.
func (s *BalanceSnapshot) CanTransfer(amount *uint256.Int) bool {
	return amount.Cmp(s.balance.AmountUnlocked) <= 0
}

// Debit removes amount from the unlocked balance. Debiting more than
// CanTransfer allows is an impossible state for validated input and panics.
func (s *BalanceSnapshot) Debit(amount *uint256.Int) {
	s.ensureOpen()
	if !s.CanTransfer(amount) {
		invariant.Failf("tried to debit %s from %s which only has %s",
			amount.Dec(), s.principal, s.balance.AmountUnlocked.Dec())
	}
	next, _ := u128.Sub(s.balance.AmountUnlocked, amount)
	s.balance.AmountUnlocked = next
}

// Credit adds amount to the unlocked balance. Overflow panics.
func (s *BalanceSnapshot) Credit(amount *uint256.Int) {
	s.ensureOpen()
	next, ok := u128.Add(s.balance.AmountUnlocked, amount)
	invariant.Check(ok, "STX balance overflow crediting %s to %s", amount.Dec(), s.principal)
	s.balance.AmountUnlocked = next
}

// LockTokens moves amount from the unlocked balance into a lock that matures
// at unlockHeight. A zero amount or unlock height is a caller bug and panics.
func (s *BalanceSnapshot) LockTokens(amount *uint256.Int, unlockHeight uint64) error {
	s.ensureOpen()
	invariant.Check(amount != nil && !amount.IsZero(), "pox lock of zero amount for %s", s.principal)
	invariant.Check(unlockHeight > 0, "pox lock for %s with zero unlock height", s.principal)
	if s.balance.HasLockedTokens() {
		return ErrPoxAlreadyLocked
	}
	if !s.CanTransfer(amount) {
		return ErrPoxInsufficientBalance
	}
	next, _ := u128.Sub(s.balance.AmountUnlocked, amount)
	s.balance.AmountUnlocked = next
	s.balance.AmountLocked = new(uint256.Int).Set(amount)
	s.balance.UnlockHeight = unlockHeight
	return nil
}

// TransferTo debits this snapshot, credits recipient and saves both. The
// sender snapshot is consumed.
func (s *BalanceSnapshot) TransferTo(recipient types.Principal, amount *uint256.Int) error {
	s.ensureOpen()
	invariant.Check(recipient != s.principal, "transfer from %s to itself", s.principal)
	s.Debit(amount)
	if err := s.Save(); err != nil {
		return err
	}
	dest, err := s.m.STXSnapshot(recipient)
	if err != nil {
		return fmt.Errorf("state: transfer recipient: %w", err)
	}
	dest.Credit(amount)
	return dest.Save()
}

// Save persists the balance and closes the snapshot.
func (s *BalanceSnapshot) Save() error {
	s.ensureOpen()
	s.done = true
	return s.m.writeSTXBalance(s.principal, s.balance)
}
