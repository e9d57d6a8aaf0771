package functions

import (
	"log/slog"

	"settlechain/core/events"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/vm/costs"
)

// Environment is the context a contract call executes in.
type Environment struct {
	// Sender is the authenticated transaction sender; nil when the call
	// has none (e.g. a read-only query).
	Sender *types.Principal
	// Contract is the contract whose assets the call operates on.
	Contract types.Principal
	State    *state.Manager
	Costs    costs.Tracker
	Events   events.Emitter
	Assets   *AssetMap
	Log      *slog.Logger
}

// NewEnvironment fills unset collaborators with no-op defaults.
func NewEnvironment(st *state.Manager, contract types.Principal, sender *types.Principal) *Environment {
	return &Environment{
		Sender:   sender,
		Contract: contract,
		State:    st,
		Costs:    costs.Free{},
		Events:   events.NoopEmitter{},
		Assets:   NewAssetMap(),
		Log:      slog.Default(),
	}
}

func (env *Environment) addMemory(bytes uint64) error {
	return env.Costs.AddMemory(bytes)
}

func (env *Environment) runtimeCost(fn costs.Function, inputSize uint64) error {
	return env.Costs.AddRuntime(fn, inputSize)
}

func (env *Environment) emit(evt events.Event) {
	if env.Events != nil {
		env.Events.Emit(evt)
	}
}

func (env *Environment) asset(name string) types.AssetIdentifier {
	return types.AssetIdentifier{Contract: env.Contract, Name: name}
}

func (env *Environment) isSender(p types.Principal) bool {
	return env.Sender != nil && *env.Sender == p
}
