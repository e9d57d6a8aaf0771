package functions

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"settlechain/core/events"
	"settlechain/core/invariant"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/vm/costs"
	vmerrors "settlechain/vm/errors"
	"settlechain/vm/values"
)

// uintMemory is the footprint charged for one stored u128.
const uintMemory = 16

func resolveFungible(env *Environment, name string) (types.AssetIdentifier, error) {
	asset := env.asset(name)
	if _, err := env.State.FungibleToken(asset); err != nil {
		if errors.Is(err, state.ErrNoSuchAsset) {
			return asset, fmt.Errorf("%w: %s", vmerrors.ErrBadTokenName, asset)
		}
		return asset, err
	}
	return asset, nil
}

func resolveNonFungible(env *Environment, name string) (types.AssetIdentifier, values.TypeSignature, error) {
	asset := env.asset(name)
	raw, err := env.State.NFTKeyType(asset)
	if err != nil {
		if errors.Is(err, state.ErrNoSuchAsset) {
			return asset, values.NoType, fmt.Errorf("%w: %s", vmerrors.ErrBadTokenName, asset)
		}
		return asset, values.NoType, err
	}
	keyType, err := values.DecodeType(raw)
	if err != nil {
		return asset, values.NoType, fmt.Errorf("decode key type of %s: %w", asset, err)
	}
	return asset, keyType, nil
}

func ftMint(env *Environment, name string, args []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.FtMint, 0); err != nil {
		return nil, err
	}
	amount, okAmount := args[0].(values.UInt)
	to, okTo := args[1].(values.Principal)
	if !okAmount || !okTo || amount.V == nil {
		return nil, vmerrors.ErrBadMintFTArguments
	}
	asset, err := resolveFungible(env, name)
	if err != nil {
		return nil, err
	}
	if amount.V.IsZero() {
		return values.ErrUInt(MintTokenNonPositiveAmount), nil
	}
	if err := env.addMemory(values.PrincipalSize + uintMemory); err != nil {
		return nil, err
	}
	current, err := env.State.FTBalance(asset, to.Principal)
	if err != nil {
		return nil, err
	}
	if err := env.State.CheckedIncreaseTokenSupply(asset, amount.V); err != nil {
		if errors.Is(err, state.ErrSupplyOverflow) {
			return nil, fmt.Errorf("%w: %w", vmerrors.ErrSupplyOverflow, err)
		}
		return nil, err
	}
	next, ok := u128.Add(current, amount.V)
	invariant.Check(ok, "%s balance overflow minting to %s", asset, to.Principal)
	if err := env.State.SetFTBalance(asset, to.Principal, next); err != nil {
		return nil, err
	}
	env.emit(events.FTMint{Asset: asset, Recipient: to.Principal, Amount: new(uint256.Int).Set(amount.V)})
	return values.OkayTrue(), nil
}

func ftTransfer(env *Environment, name string, args []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.FtTransfer, 0); err != nil {
		return nil, err
	}
	amount, okAmount := args[0].(values.UInt)
	from, okFrom := args[1].(values.Principal)
	to, okTo := args[2].(values.Principal)
	if !okAmount || !okFrom || !okTo || amount.V == nil {
		return nil, vmerrors.ErrBadTransferFTArguments
	}
	asset, err := resolveFungible(env, name)
	if err != nil {
		return nil, err
	}
	if amount.V.IsZero() {
		return values.ErrUInt(TransferTokenNonPositiveAmount), nil
	}
	if from.Principal == to.Principal {
		return values.ErrUInt(TransferTokenSenderIsRecipient), nil
	}
	fromBalance, err := env.State.FTBalance(asset, from.Principal)
	if err != nil {
		return nil, err
	}
	if fromBalance.Lt(amount.V) {
		return values.ErrUInt(TransferTokenNotEnoughBalance), nil
	}
	toBalance, err := env.State.FTBalance(asset, to.Principal)
	if err != nil {
		return nil, err
	}
	nextTo, ok := u128.Add(toBalance, amount.V)
	if !ok {
		return nil, vmerrors.ErrArithmeticOverflow
	}
	nextFrom, _ := u128.Sub(fromBalance, amount.V)
	if err := env.addMemory(2*values.PrincipalSize + 2*uintMemory); err != nil {
		return nil, err
	}
	if err := env.State.SetFTBalance(asset, from.Principal, nextFrom); err != nil {
		return nil, err
	}
	if err := env.State.SetFTBalance(asset, to.Principal, nextTo); err != nil {
		return nil, err
	}
	if err := env.Assets.AddTokenTransfer(from.Principal, asset, amount.V); err != nil {
		return nil, err
	}
	env.emit(events.FTTransfer{
		Asset:     asset,
		Sender:    from.Principal,
		Recipient: to.Principal,
		Amount:    new(uint256.Int).Set(amount.V),
	})
	return values.OkayTrue(), nil
}

func ftGetBalance(env *Environment, name string, args []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.FtBalance, 0); err != nil {
		return nil, err
	}
	owner, ok := args[0].(values.Principal)
	if !ok {
		return nil, typeMismatch(values.PrincipalType, args[0])
	}
	asset, err := resolveFungible(env, name)
	if err != nil {
		return nil, err
	}
	balance, err := env.State.FTBalance(asset, owner.Principal)
	if err != nil {
		return nil, err
	}
	return values.UInt{V: balance}, nil
}

func ftGetSupply(env *Environment, name string, _ []values.Value) (values.Value, error) {
	if err := env.runtimeCost(costs.FtSupply, 0); err != nil {
		return nil, err
	}
	asset, err := resolveFungible(env, name)
	if err != nil {
		return nil, err
	}
	supply, err := env.State.FTSupply(asset)
	if err != nil {
		return nil, err
	}
	return values.UInt{V: supply}, nil
}

func nftMint(env *Environment, name string, args []values.Value) (values.Value, error) {
	asset, keyType, err := resolveNonFungible(env, name)
	if err != nil {
		return nil, err
	}
	if err := env.runtimeCost(costs.NftMint, keyType.Size()); err != nil {
		return nil, err
	}
	token := args[0]
	if !keyType.Admits(token) {
		return nil, typeMismatch(keyType, token)
	}
	to, ok := args[1].(values.Principal)
	if !ok {
		return nil, typeMismatch(values.PrincipalType, args[1])
	}
	key, err := values.Serialize(token)
	if err != nil {
		return nil, err
	}
	switch _, err := env.State.NFTOwner(asset, key); {
	case err == nil:
		return values.ErrUInt(MintAssetAlreadyExists), nil
	case !errors.Is(err, state.ErrNoSuchToken):
		return nil, err
	}
	if err := env.addMemory(values.PrincipalSize + keyType.Size()); err != nil {
		return nil, err
	}
	if err := env.State.SetNFTOwner(asset, key, to.Principal); err != nil {
		return nil, err
	}
	env.emit(events.NFTMint{Asset: asset, Recipient: to.Principal, Value: token.String()})
	return values.OkayTrue(), nil
}

func nftTransfer(env *Environment, name string, args []values.Value) (values.Value, error) {
	asset, keyType, err := resolveNonFungible(env, name)
	if err != nil {
		return nil, err
	}
	if err := env.runtimeCost(costs.NftTransfer, keyType.Size()); err != nil {
		return nil, err
	}
	token := args[0]
	if !keyType.Admits(token) {
		return nil, typeMismatch(keyType, token)
	}
	from, okFrom := args[1].(values.Principal)
	to, okTo := args[2].(values.Principal)
	if !okFrom || !okTo {
		return nil, vmerrors.ErrBadTransferNFTArguments
	}
	if from.Principal == to.Principal {
		return values.ErrUInt(TransferAssetSenderIsRecipient), nil
	}
	key, err := values.Serialize(token)
	if err != nil {
		return nil, err
	}
	owner, err := env.State.NFTOwner(asset, key)
	if errors.Is(err, state.ErrNoSuchToken) {
		return values.ErrUInt(TransferAssetDoesNotExist), nil
	}
	if err != nil {
		return nil, err
	}
	if owner != from.Principal {
		return values.ErrUInt(TransferAssetNotOwnedBy), nil
	}
	if err := env.addMemory(values.PrincipalSize + keyType.Size()); err != nil {
		return nil, err
	}
	if err := env.State.SetNFTOwner(asset, key, to.Principal); err != nil {
		return nil, err
	}
	env.Assets.AddAssetTransfer(from.Principal, asset, token)
	env.emit(events.NFTTransfer{
		Asset:     asset,
		Sender:    from.Principal,
		Recipient: to.Principal,
		Value:     token.String(),
	})
	return values.OkayTrue(), nil
}

func nftGetOwner(env *Environment, name string, args []values.Value) (values.Value, error) {
	asset, keyType, err := resolveNonFungible(env, name)
	if err != nil {
		return nil, err
	}
	if err := env.runtimeCost(costs.NftOwner, keyType.Size()); err != nil {
		return nil, err
	}
	token := args[0]
	if !keyType.Admits(token) {
		return nil, typeMismatch(keyType, token)
	}
	key, err := values.Serialize(token)
	if err != nil {
		return nil, err
	}
	owner, err := env.State.NFTOwner(asset, key)
	if errors.Is(err, state.ErrNoSuchToken) {
		return values.None(), nil
	}
	if err != nil {
		return nil, err
	}
	return values.Some(values.Principal{Principal: owner}), nil
}
