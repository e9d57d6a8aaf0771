package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"settlechain/core/invariant"
	"settlechain/core/types"
	"settlechain/core/u128"
)

var (
	// ErrPoxAlreadyLocked is returned when locking a balance that already
	// carries an active lock.
	ErrPoxAlreadyLocked = errors.New("state: pox lock already active")
	// ErrPoxInsufficientBalance is returned when the lock amount exceeds the
	// transferable balance.
	ErrPoxInsufficientBalance = errors.New("state: insufficient balance for pox lock")
)

// STXBalanceSize is the memory footprint charged for loading one balance:
// two u128 fields and a u64 unlock height.
const STXBalanceSize = 16 + 16 + 8

// STXBalance is the stored native-coin balance of one principal. A non-zero
// AmountLocked always carries a non-zero UnlockHeight.
type STXBalance struct {
	AmountUnlocked *uint256.Int
	AmountLocked   *uint256.Int
	UnlockHeight   uint64
}

// ZeroBalance returns the balance of an untouched principal.
func ZeroBalance() STXBalance {
	return STXBalance{AmountUnlocked: u128.Zero(), AmountLocked: u128.Zero()}
}

// Clone returns a deep copy.
func (b STXBalance) Clone() STXBalance {
	out := ZeroBalance()
	if b.AmountUnlocked != nil {
		out.AmountUnlocked.Set(b.AmountUnlocked)
	}
	if b.AmountLocked != nil {
		out.AmountLocked.Set(b.AmountLocked)
	}
	out.UnlockHeight = b.UnlockHeight
	return out
}

// HasLockedTokens reports whether part of the balance is locked.
func (b STXBalance) HasLockedTokens() bool {
	return b.AmountLocked != nil && !b.AmountLocked.IsZero()
}

// Total returns unlocked plus locked. Overflow is impossible for a balance
// that was built through checked credits and is treated as fatal.
func (b STXBalance) Total() *uint256.Int {
	total, ok := u128.Add(b.AmountUnlocked, b.AmountLocked)
	invariant.Check(ok, "balance total overflows u128")
	return total
}

// unlocked returns the balance as seen at height: a lock whose unlock height
// has been reached is folded into the unlocked amount.
func (b STXBalance) unlocked(height uint64) STXBalance {
	out := b.Clone()
	if out.HasLockedTokens() && height >= out.UnlockHeight {
		sum, ok := u128.Add(out.AmountUnlocked, out.AmountLocked)
		invariant.Check(ok, "unlocking %s overflows u128", out.AmountLocked.Dec())
		out.AmountUnlocked = sum
		out.AmountLocked = u128.Zero()
		out.UnlockHeight = 0
	}
	return out
}

func (m *Manager) loadSTXBalance(p types.Principal) (STXBalance, error) {
	var stored STXBalance
	ok, err := m.KVGet(STXBalanceKey(p), &stored)
	if err != nil {
		return STXBalance{}, fmt.Errorf("state: load balance %s: %w", p, err)
	}
	if !ok {
		return ZeroBalance(), nil
	}
	return stored.Clone(), nil
}

func (m *Manager) writeSTXBalance(p types.Principal, b STXBalance) error {
	if b.HasLockedTokens() {
		invariant.Check(b.UnlockHeight > 0, "locked balance for %s without unlock height", p)
	}
	return m.KVPut(STXBalanceKey(p), b.Clone())
}

// STXBalance returns the balance of p with matured locks folded in. The
// stored record is left untouched.
func (m *Manager) STXBalance(p types.Principal) (STXBalance, error) {
	stored, err := m.loadSTXBalance(p)
	if err != nil {
		return STXBalance{}, err
	}
	return stored.unlocked(m.chainHeight), nil
}

// AccountNonce returns the nonce of p, zero when untouched.
func (m *Manager) AccountNonce(p types.Principal) (uint64, error) {
	var nonce uint64
	if _, err := m.KVGet(NonceKey(p), &nonce); err != nil {
		return 0, fmt.Errorf("state: load nonce %s: %w", p, err)
	}
	return nonce, nil
}

// SetAccountNonce stores the nonce of p.
func (m *Manager) SetAccountNonce(p types.Principal, nonce uint64) error {
	return m.KVPut(NonceKey(p), nonce)
}

// Account bundles the balance and nonce of a principal.
type Account struct {
	Principal types.Principal
	Balance   STXBalance
	Nonce     uint64
}

// GetAccount returns the account view of p.
func (m *Manager) GetAccount(p types.Principal) (*Account, error) {
	balance, err := m.STXBalance(p)
	if err != nil {
		return nil, err
	}
	nonce, err := m.AccountNonce(p)
	if err != nil {
		return nil, err
	}
	return &Account{Principal: p, Balance: balance, Nonce: nonce}, nil
}
