// Package errors holds the recoverable failures raised while evaluating a
// contract call. They abort the call and its enclosing transaction but,
// unlike invariant violations, leave the node running.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrArithmeticOverflow = stderrors.New("runtime: arithmetic overflow")
	ErrSupplyOverflow     = stderrors.New("runtime: supply overflow")
	ErrNoSuchToken        = stderrors.New("runtime: no such token")

	ErrBadTokenName            = stderrors.New("check: bad token name")
	ErrBadTransferSTXArguments = stderrors.New("check: bad stx-transfer arguments")
	ErrBadMintFTArguments      = stderrors.New("check: bad ft-mint arguments")
	ErrBadTransferFTArguments  = stderrors.New("check: bad ft-transfer arguments")
	ErrBadTransferNFTArguments = stderrors.New("check: bad nft-transfer arguments")
	ErrUnknownFunction         = stderrors.New("check: unknown function")
)

// ArgumentCountError reports a call with the wrong number of arguments.
type ArgumentCountError struct {
	Function string
	Expected int
	Got      int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("check: %s expects %d arguments, got %d", e.Function, e.Expected, e.Got)
}

// TypeValueError reports a value that does not fit the expected type.
type TypeValueError struct {
	Expected string
	Value    string
}

func (e *TypeValueError) Error() string {
	return fmt.Sprintf("check: expected %s, got %s", e.Expected, e.Value)
}

// CheckArgumentCount returns an *ArgumentCountError unless got == expected.
func CheckArgumentCount(function string, expected, got int) error {
	if expected != got {
		return &ArgumentCountError{Function: function, Expected: expected, Got: got}
	}
	return nil
}
