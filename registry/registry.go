// Package registry manages player profiles independently of any single game.
package registry

import (
	"errors"
	"fmt"

	"github.com/tolelom/consensusclash/core"
)

// Registry reads and writes player profiles through a core.State.
type Registry struct {
	state core.State
}

// New wraps state.
func New(state core.State) *Registry {
	return &Registry{state: state}
}

// Register creates the profile for address on first use and otherwise only
// updates the display fields. It reports whether a new profile was created.
func (r *Registry) Register(address, name, avatar string) (created bool, err error) {
	p, err := r.state.GetPlayer(address)
	switch {
	case err == nil:
		p.Name = name
		p.Avatar = avatar
		return false, r.state.SetPlayer(p)
	case !errors.Is(err, core.ErrNotFound):
		return false, fmt.Errorf("load player %q: %w", address, err)
	}

	meta, err := r.state.GetMeta()
	if err != nil {
		return false, err
	}
	meta.PlayerCount++
	p = &core.Player{
		Address: address,
		Name:    name,
		Avatar:  avatar,
		Seq:     meta.PlayerCount,
	}
	if err := r.state.SetPlayer(p); err != nil {
		return false, err
	}
	return true, r.state.SetMeta(meta)
}

// Get returns the profile for address, or core.ErrNotFound.
func (r *Registry) Get(address string) (*core.Player, error) {
	return r.state.GetPlayer(address)
}

// Require is Get that reports a missing profile as core.ErrNotRegistered.
func (r *Registry) Require(address string) (*core.Player, error) {
	p, err := r.state.GetPlayer(address)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q must register first", core.ErrNotRegistered, address)
	}
	return p, err
}

// ApplySettlement credits one completed game to address. The consensus
// engine guarantees one call per member per game; there is no dedup here.
func (r *Registry) ApplySettlement(address string, xp uint64, winner bool) error {
	p, err := r.Require(address)
	if err != nil {
		return err
	}
	p.ApplySettlement(xp, winner)
	return r.state.SetPlayer(p)
}

// All returns every profile in registration order.
func (r *Registry) All() ([]*core.Player, error) {
	return r.state.Players()
}
