package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
)

// Receipt describes a committed call.
type Receipt struct {
	CallID    string         `json:"call_id"`
	Method    core.Method    `json:"method"`
	Caller    string         `json:"caller"`
	Result    any            `json:"result,omitempty"`
	StateRoot string         `json:"state_root"`
	Events    []events.Event `json:"events"`
}

// Executor applies calls to the state one at a time. Every call runs under
// the write lock inside a snapshot: it either commits in full or leaves no
// trace. Reads go through View under the read lock and therefore only ever
// see committed state.
type Executor struct {
	mu       sync.RWMutex
	state    core.State
	emitter  *events.Emitter
	oracles  Oracles
	registry *Registry
	logger   *slog.Logger
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithRegistry replaces the global module registry.
func WithRegistry(r *Registry) Option {
	return func(e *Executor) { e.registry = r }
}

// NewExecutor creates an Executor with the given state, event emitter and
// oracle boundaries. emitter may be nil.
func NewExecutor(state core.State, emitter *events.Emitter, oracles Oracles, opts ...Option) *Executor {
	e := &Executor{
		state:    state,
		emitter:  emitter,
		oracles:  oracles,
		registry: globalRegistry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs call against the state with snapshot/rollback and commits the
// result durably. On any error the state is exactly as before the call.
func (e *Executor) Execute(ctx context.Context, call *core.Call) (*Receipt, error) {
	if call == nil {
		return nil, errors.New("nil call")
	}
	if call.Caller == "" {
		return nil, fmt.Errorf("%w: caller identity required", core.ErrUnauthorized)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	vctx := &Context{
		Ctx:     ctx,
		State:   e.state,
		Call:    call,
		Oracles: e.oracles,
		Logger:  e.logger.With("call_id", call.ID, "method", call.Method, "caller", call.Caller),
	}
	result, err := e.registry.Execute(call.Method, vctx, call.Payload)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return nil, fmt.Errorf("revert snapshot after call failure: %w (revert: %v)", err, revertErr)
		}
		vctx.Logger.Info("call rejected", "kind", core.KindOf(err), "err", err)
		return nil, err
	}

	root := e.state.ComputeRoot()
	if err := e.state.Commit(); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return nil, fmt.Errorf("commit: %w (revert: %v)", err, revertErr)
		}
		return nil, fmt.Errorf("commit: %w", err)
	}

	vctx.Emit(events.EventCallExecuted, 0, map[string]any{
		"method": string(call.Method),
		"caller": call.Caller,
	})
	if e.emitter != nil {
		for _, ev := range vctx.events {
			e.emitter.Emit(ev)
		}
	}
	vctx.Logger.Debug("call committed", "state_root", root)

	return &Receipt{
		CallID:    call.ID,
		Method:    call.Method,
		Caller:    call.Caller,
		Result:    result,
		StateRoot: root,
		Events:    vctx.events,
	}, nil
}

// View runs fn against committed state under the read lock. fn must not
// mutate the state.
func (e *Executor) View(fn func(core.State) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.state)
}
