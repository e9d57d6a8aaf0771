package functions

import (
	"github.com/holiman/uint256"

	"settlechain/core/events"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/vm/costs"
	vmerrors "settlechain/vm/errors"
	"settlechain/vm/values"
)

func stxGetBalance(env *Environment, _ string, args []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.StxBalance, 0); err != nil {
		return nil, err
	}
	owner, ok := args[0].(values.Principal)
	if !ok {
		return nil, typeMismatch(values.PrincipalType, args[0])
	}
	snapshot, err := env.State.STXSnapshot(owner.Principal)
	if err != nil {
		return nil, err
	}
	return values.UInt{V: snapshot.AvailableBalance()}, nil
}

func stxTransfer(env *Environment, _ string, args []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.StxTransfer, 0); err != nil {
		return nil, err
	}
	amount, okAmount := args[0].(values.UInt)
	from, okFrom := args[1].(values.Principal)
	to, okTo := args[2].(values.Principal)
	if !okAmount || !okFrom || !okTo || amount.V == nil {
		return nil, vmerrors.ErrBadTransferSTXArguments
	}
	return transferSTX(env, from.Principal, to.Principal, amount.V)
}

// transferSTX moves amount of native coin. Checks run in the order amount,
// self-transfer, balance, sender so the returned code is deterministic when
// several conditions hold.
func transferSTX(env *Environment, from, to types.Principal, amount *uint256.Int) (values.Value, error) {
	if amount.IsZero() {
		return values.ErrUInt(StxNonPositiveAmount), nil
	}
	if from == to {
		return values.ErrUInt(StxSenderIsRecipient), nil
	}
	if err := env.addMemory(2*values.PrincipalSize + 2*state.STXBalanceSize); err != nil {
		return nil, err
	}
	sender, err := env.State.STXSnapshot(from)
	if err != nil {
		return nil, err
	}
	if !sender.CanTransfer(amount) {
		return values.ErrUInt(StxNotEnoughBalance), nil
	}
	if !env.isSender(from) {
		return values.ErrUInt(StxSenderIsNotTxSender), nil
	}
	if err := sender.TransferTo(to, amount); err != nil {
		return nil, err
	}
	if err := env.Assets.AddSTXTransfer(from, amount); err != nil {
		return nil, err
	}
	env.emit(events.STXTransfer{Sender: from, Recipient: to, Amount: new(uint256.Int).Set(amount)})
	return values.OkayTrue(), nil
}

func stxBurn(env *Environment, _ string, args []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.StxTransfer, 0); err != nil {
		return nil, err
	}
	amount, okAmount := args[0].(values.UInt)
	from, okFrom := args[1].(values.Principal)
	if !okAmount || !okFrom || amount.V == nil {
		return nil, vmerrors.ErrBadTransferSTXArguments
	}
	if amount.V.IsZero() {
		return values.ErrUInt(StxNonPositiveAmount), nil
	}
	if err := env.addMemory(values.PrincipalSize + state.STXBalanceSize); err != nil {
		return nil, err
	}
	burner, err := env.State.STXSnapshot(from.Principal)
	if err != nil {
		return nil, err
	}
	if !burner.CanTransfer(amount.V) {
		return values.ErrUInt(StxNotEnoughBalance), nil
	}
	if !env.isSender(from.Principal) {
		return values.ErrUInt(StxSenderIsNotTxSender), nil
	}
	burner.Debit(amount.V)
	if err := burner.Save(); err != nil {
		return nil, err
	}
	if err := env.Assets.AddSTXBurn(from.Principal, amount.V); err != nil {
		return nil, err
	}
	env.emit(events.STXBurn{Sender: from.Principal, Amount: new(uint256.Int).Set(amount.V)})
	return values.OkayTrue(), nil
}

func typeMismatch(expected values.TypeSignature, got values.Value) error {
	return &vmerrors.TypeValueError{Expected: expected.String(), Value: got.String()}
}
