// Package costs meters the resources consumed by contract calls. The asset
// operations only need to charge and to learn that a budget was exceeded.
package costs

import (
	"errors"
	"fmt"
)

// ErrCostBudgetExceeded is returned once a charge passes the budget.
var ErrCostBudgetExceeded = errors.New("costs: budget exceeded")

// Function names a metered operation.
type Function string

const (
	StxBalance  Function = "stx-get-balance"
	StxTransfer Function = "stx-transfer"
	FtMint      Function = "ft-mint"
	FtTransfer  Function = "ft-transfer"
	FtBalance   Function = "ft-get-balance"
	FtSupply    Function = "ft-get-supply"
	NftMint     Function = "nft-mint"
	NftTransfer Function = "nft-transfer"
	NftOwner    Function = "nft-get-owner"
)

// Tracker is the cost-accounting collaborator.
type Tracker interface {
	// AddRuntime charges the runtime cost of fn applied to an input of
	// inputSize bytes.
	AddRuntime(fn Function, inputSize uint64) error
	// AddMemory charges bytes of memory held until the transaction ends.
	AddMemory(bytes uint64) error
}

// Free accepts every charge.
type Free struct{}

func (Free) AddRuntime(Function, uint64) error { return nil }
func (Free) AddMemory(uint64) error            { return nil }

// Limits bounds a LimitedTracker.
type Limits struct {
	Runtime uint64
	Memory  uint64
}

// LimitedTracker charges a fixed base cost per function plus one unit per
// input byte, and fails with ErrCostBudgetExceeded once either limit is
// passed. A failed charge is still recorded.
type LimitedTracker struct {
	limits  Limits
	base    map[Function]uint64
	runtime uint64
	memory  uint64
}

// DefaultBaseCosts lists the runtime cost charged per call.
func DefaultBaseCosts() map[Function]uint64 {
	return map[Function]uint64{
		StxBalance:  1000,
		StxTransfer: 1000,
		FtMint:      1000,
		FtTransfer:  1000,
		FtBalance:   500,
		FtSupply:    500,
		NftMint:     1000,
		NftTransfer: 1000,
		NftOwner:    500,
	}
}

// NewLimitedTracker returns a tracker with the default base costs.
func NewLimitedTracker(limits Limits) *LimitedTracker {
	return &LimitedTracker{limits: limits, base: DefaultBaseCosts()}
}

func (t *LimitedTracker) AddRuntime(fn Function, inputSize uint64) error {
	cost := t.base[fn] + inputSize
	t.runtime += cost
	if t.limits.Runtime > 0 && t.runtime > t.limits.Runtime {
		return fmt.Errorf("%w: runtime %d > %d", ErrCostBudgetExceeded, t.runtime, t.limits.Runtime)
	}
	return nil
}

func (t *LimitedTracker) AddMemory(bytes uint64) error {
	t.memory += bytes
	if t.limits.Memory > 0 && t.memory > t.limits.Memory {
		return fmt.Errorf("%w: memory %d > %d", ErrCostBudgetExceeded, t.memory, t.limits.Memory)
	}
	return nil
}

// Runtime returns the runtime charged so far.
func (t *LimitedTracker) Runtime() uint64 { return t.runtime }

// Memory returns the memory charged so far.
func (t *LimitedTracker) Memory() uint64 { return t.memory }
