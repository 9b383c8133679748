package vm

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tolelom/consensusclash/core"
)

// Handler is the function signature every contract module must implement.
// The returned value is surfaced to the caller in the receipt.
type Handler func(ctx *Context, payload json.RawMessage) (any, error)

// Registry maps Methods to Handlers. Thread-safe for concurrent registration.
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.Method]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[core.Method]Handler)}
}

// Register associates m with h. Panics on duplicate registration.
func (r *Registry) Register(m core.Method, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[m]; exists {
		panic(fmt.Sprintf("vm: handler already registered for method %q", m))
	}
	r.handlers[m] = h
}

// Execute dispatches payload to the handler registered for m.
func (r *Registry) Execute(m core.Method, ctx *Context, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[m]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vm: no handler registered for method %q", m)
	}
	return h(ctx, payload)
}

// Methods lists registered methods in sorted order.
func (r *Registry) Methods() []core.Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Method, 0, len(r.handlers))
	for m := range r.handlers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// globalRegistry is the package-level singleton that modules register into.
var globalRegistry = NewRegistry()

// Register adds a handler to the global registry.
// Module init() functions call this to self-register.
func Register(m core.Method, h Handler) {
	globalRegistry.Register(m, h)
}
