package config

import (
	"fmt"

	"github.com/tolelom/consensusclash/core"
)

// InitState records cfg.Owner as contract owner on a fresh store and
// commits. An existing owner is kept; it reports whether the store was
// initialized by this call.
func InitState(cfg *Config, state core.State) (bool, error) {
	meta, err := state.GetMeta()
	if err != nil {
		return false, err
	}
	if meta.Owner != "" {
		return false, nil
	}
	meta.Owner = cfg.Owner
	if err := state.SetMeta(meta); err != nil {
		return false, err
	}
	if err := state.Commit(); err != nil {
		return false, fmt.Errorf("commit initial state: %w", err)
	}
	return true, nil
}
