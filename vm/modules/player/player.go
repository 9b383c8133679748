// Package player registers the player-registry call handler.
package player

import (
	"encoding/json"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/registry"
	"github.com/tolelom/consensusclash/vm"
)

func init() {
	vm.Register(core.MethodRegisterPlayer, handleRegister)
}

func handleRegister(ctx *vm.Context, payload json.RawMessage) (any, error) {
	var p core.RegisterPlayerPayload
	if err := vm.Decode(payload, &p); err != nil {
		return nil, err
	}

	created, err := registry.New(ctx.State).Register(ctx.Caller(), p.Name, p.Avatar)
	if err != nil {
		return nil, err
	}

	ctx.Emit(events.EventPlayerRegistered, 0, map[string]any{
		"address": ctx.Caller(),
		"name":    p.Name,
		"created": created,
	})
	return map[string]any{"address": ctx.Caller(), "created": created}, nil
}
