// Package functions implements the contract-callable operations that move
// native coin and contract-defined assets.
package functions

import (
	"sort"

	vmerrors "settlechain/vm/errors"
	"settlechain/vm/values"
)

// Special is the implementation of one contract-callable operation. asset is
// the name of the contract-defined asset, empty for native coin operations.
type Special func(env *Environment, asset string, args []values.Value) (values.Value, error)

// Function describes a registered operation.
type Function struct {
	Name string
	// Arity counts value arguments; the asset name is not one of them.
	Arity      int
	TakesAsset bool
	Impl       Special
}

var registry = map[string]Function{}

func register(fn Function) {
	registry[fn.Name] = fn
}

func init() {
	register(Function{Name: "stx-get-balance", Arity: 1, Impl: stxGetBalance})
	register(Function{Name: "stx-transfer?", Arity: 3, Impl: stxTransfer})
	register(Function{Name: "stx-burn?", Arity: 2, Impl: stxBurn})
	register(Function{Name: "ft-mint?", Arity: 2, TakesAsset: true, Impl: ftMint})
	register(Function{Name: "ft-transfer?", Arity: 3, TakesAsset: true, Impl: ftTransfer})
	register(Function{Name: "ft-get-balance", Arity: 1, TakesAsset: true, Impl: ftGetBalance})
	register(Function{Name: "ft-get-supply", Arity: 0, TakesAsset: true, Impl: ftGetSupply})
	register(Function{Name: "nft-mint?", Arity: 2, TakesAsset: true, Impl: nftMint})
	register(Function{Name: "nft-transfer?", Arity: 3, TakesAsset: true, Impl: nftTransfer})
	register(Function{Name: "nft-get-owner?", Arity: 1, TakesAsset: true, Impl: nftGetOwner})
}

// Lookup returns the registered operation called name.
func Lookup(name string) (Function, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Names lists the registered operations in lexical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Call checks arity and dispatches name. Contract-level failures come back
// as an err response value; the returned error aborts the enclosing
// transaction.
func Call(env *Environment, name, asset string, args ...values.Value) (values.Value, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, vmerrors.ErrUnknownFunction
	}
	if fn.TakesAsset && asset == "" {
		return nil, vmerrors.ErrBadTokenName
	}
	if err := vmerrors.CheckArgumentCount(name, fn.Arity, len(args)); err != nil {
		return nil, err
	}
	return fn.Impl(env, asset, args)
}
