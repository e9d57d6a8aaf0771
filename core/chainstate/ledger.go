package chainstate

import (
	"log/slog"
	"math"

	"github.com/holiman/uint256"

	"settlechain/core/events"
	"settlechain/core/invariant"
	"settlechain/core/state"
	"settlechain/core/types"
)

// Ledger is the handle a transition uses to move native coin. Every method
// assumes the caller already validated the operation; impossible requests
// panic.
type Ledger struct {
	state  *state.Manager
	events events.Emitter
	log    *slog.Logger
}

func newLedger(m *state.Manager, emitter events.Emitter, logger *slog.Logger) *Ledger {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{state: m, events: emitter, log: logger}
}

// State exposes the underlying ledger state.
func (l *Ledger) State() *state.Manager { return l.state }

// Events returns the emitter transition events go to.
func (l *Ledger) Events() events.Emitter { return l.events }

// AccountDebit removes amount from p's unlocked balance.
func (l *Ledger) AccountDebit(p types.Principal, amount *uint256.Int) error {
	snapshot, err := l.state.STXSnapshot(p)
	if err != nil {
		return err
	}
	snapshot.Debit(amount)
	return snapshot.Save()
}

// AccountCredit adds amount to p's unlocked balance.
func (l *Ledger) AccountCredit(p types.Principal, amount *uint256.Int) error {
	snapshot, err := l.state.STXSnapshot(p)
	if err != nil {
		return err
	}
	snapshot.Credit(amount)
	if err := snapshot.Save(); err != nil {
		return err
	}
	l.log.Info("account credited",
		slog.String("principal", p.String()),
		slog.String("amount", amount.Dec()),
		slog.Uint64("height", l.state.ChainHeight()))
	return nil
}

// AccountGenesisCredit adds amount to p without applying lock maturity.
func (l *Ledger) AccountGenesisCredit(p types.Principal, amount *uint256.Int) error {
	snapshot, err := l.state.GenesisSnapshot(p)
	if err != nil {
		return err
	}
	snapshot.Credit(amount)
	return snapshot.Save()
}

// UpdateAccountNonce increments p's nonce.
func (l *Ledger) UpdateAccountNonce(p types.Principal) error {
	nonce, err := l.state.AccountNonce(p)
	if err != nil {
		return err
	}
	invariant.Check(nonce < math.MaxUint64, "nonce overflow for %s", p)
	return l.state.SetAccountNonce(p, nonce+1)
}

// PoxLock locks amount of p's balance until unlockHeight. It returns
// state.ErrPoxAlreadyLocked or state.ErrPoxInsufficientBalance when the lock
// cannot be placed.
func (l *Ledger) PoxLock(p types.Principal, amount *uint256.Int, unlockHeight uint64) error {
	snapshot, err := l.state.STXSnapshot(p)
	if err != nil {
		return err
	}
	if err := snapshot.LockTokens(amount, unlockHeight); err != nil {
		return err
	}
	if err := snapshot.Save(); err != nil {
		return err
	}
	l.log.Debug("pox lock placed",
		slog.String("principal", p.String()),
		slog.String("amount", amount.Dec()),
		slog.Uint64("unlock_height", unlockHeight))
	l.events.Emit(events.STXLock{Principal: p, Amount: new(uint256.Int).Set(amount), UnlockHeight: unlockHeight})
	return nil
}
