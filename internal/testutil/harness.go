package testutil

import (
	"context"
	"testing"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/storage"
	"github.com/tolelom/consensusclash/vm"
)

// Owner is the contract owner installed by NewHarness.
const Owner = "owner"

// StartTime is the harness clock's initial value (unix seconds, week 2810).
const StartTime int64 = 1_700_000_000

// Harness wires an executor over a MemDB for handler tests. Modules must be
// registered by the test package through blank imports.
type Harness struct {
	t       *testing.T
	DB      *MemDB
	State   *storage.StateDB
	Emitter *events.Emitter
	Exec    *vm.Executor
	Now     int64
}

// NewHarness returns a harness whose store already has Owner set.
func NewHarness(t *testing.T, oracles vm.Oracles) *Harness {
	t.Helper()
	db := NewMemDB()
	state := storage.NewStateDB(db)
	if err := state.SetMeta(&core.Meta{Owner: Owner}); err != nil {
		t.Fatal(err)
	}
	if err := state.Commit(); err != nil {
		t.Fatal(err)
	}
	emitter := events.NewEmitter()
	return &Harness{
		t:       t,
		DB:      db,
		State:   state,
		Emitter: emitter,
		Exec:    vm.NewExecutor(state, emitter, oracles),
		Now:     StartTime,
	}
}

// Call executes method as caller at the harness clock.
func (h *Harness) Call(method core.Method, caller string, payload any) (*vm.Receipt, error) {
	h.t.Helper()
	call, err := core.NewCallAt(method, caller, h.Now, payload)
	if err != nil {
		h.t.Fatal(err)
	}
	return h.Exec.Execute(context.Background(), call)
}

// MustCall is Call that fails the test on error.
func (h *Harness) MustCall(method core.Method, caller string, payload any) *vm.Receipt {
	h.t.Helper()
	r, err := h.Call(method, caller, payload)
	if err != nil {
		h.t.Fatalf("%s by %s: %v", method, caller, err)
	}
	return r
}

// Register registers each address with its own name.
func (h *Harness) Register(addrs ...string) {
	h.t.Helper()
	for _, a := range addrs {
		h.MustCall(core.MethodRegisterPlayer, a, core.RegisterPlayerPayload{Name: a + "-name", Avatar: a + ".png"})
	}
}

// Room returns the current room.
func (h *Harness) Room() *core.Room {
	h.t.Helper()
	room, _, err := core.CurrentRoom(h.State)
	if err != nil {
		h.t.Fatal(err)
	}
	return room
}
