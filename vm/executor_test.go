package vm_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/internal/testutil"
	"github.com/tolelom/consensusclash/storage"
	"github.com/tolelom/consensusclash/vm"
)

const (
	methodBump core.Method = "bump"
	methodFail core.Method = "bump_then_fail"
)

// testRegistry holds two handlers that touch the meta counters; the second
// fails after writing.
func testRegistry() *vm.Registry {
	reg := vm.NewRegistry()
	bump := func(ctx *vm.Context, _ json.RawMessage) (any, error) {
		meta, err := ctx.State.GetMeta()
		if err != nil {
			return nil, err
		}
		meta.TotalGames++
		if err := ctx.State.SetMeta(meta); err != nil {
			return nil, err
		}
		ctx.Emit(events.EventRoomCreated, meta.TotalGames, nil)
		return meta.TotalGames, nil
	}
	reg.Register(methodBump, bump)
	reg.Register(methodFail, func(ctx *vm.Context, p json.RawMessage) (any, error) {
		if _, err := bump(ctx, p); err != nil {
			return nil, err
		}
		return nil, core.ErrStageMismatch
	})
	return reg
}

func newExecutor(t *testing.T) (*vm.Executor, core.State, *[]events.Event) {
	t.Helper()
	state := testutil.NewStateDB()
	emitter := events.NewEmitter()
	var seen []events.Event
	emitter.SubscribeAll(func(ev events.Event) { seen = append(seen, ev) })
	exec := vm.NewExecutor(state, emitter, vm.Oracles{}, vm.WithRegistry(testRegistry()))
	return exec, state, &seen
}

func call(t *testing.T, m core.Method, caller string) *core.Call {
	t.Helper()
	c, err := core.NewCallAt(m, caller, 1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestExecuteCommitsAndEmits(t *testing.T) {
	exec, state, seen := newExecutor(t)

	receipt, err := exec.Execute(context.Background(), call(t, methodBump, "alice"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if receipt.Result != uint64(1) {
		t.Errorf("result: got %v", receipt.Result)
	}
	if receipt.StateRoot == "" || receipt.StateRoot != state.ComputeRoot() {
		t.Errorf("state root mismatch: %s", receipt.StateRoot)
	}
	if len(*seen) != 2 || (*seen)[0].Type != events.EventRoomCreated || (*seen)[1].Type != events.EventCallExecuted {
		t.Errorf("events: %+v", *seen)
	}
	if (*seen)[0].CallID != receipt.CallID || (*seen)[0].Timestamp != 1000 {
		t.Errorf("event metadata: %+v", (*seen)[0])
	}
}

func TestExecuteRollsBackOnError(t *testing.T) {
	exec, state, seen := newExecutor(t)
	if _, err := exec.Execute(context.Background(), call(t, methodBump, "alice")); err != nil {
		t.Fatal(err)
	}
	root := state.ComputeRoot()
	*seen = nil

	_, err := exec.Execute(context.Background(), call(t, methodFail, "alice"))
	if !errors.Is(err, core.ErrStageMismatch) {
		t.Fatalf("got %v want ErrStageMismatch", err)
	}
	if state.ComputeRoot() != root {
		t.Error("failed call changed the state root")
	}
	meta, _ := state.GetMeta()
	if meta.TotalGames != 1 {
		t.Errorf("counter leaked from failed call: %d", meta.TotalGames)
	}
	if len(*seen) != 0 {
		t.Errorf("failed call emitted %d events", len(*seen))
	}

	// The instance stays usable.
	if _, err := exec.Execute(context.Background(), call(t, methodBump, "alice")); err != nil {
		t.Errorf("executor unusable after rollback: %v", err)
	}
}

func TestExecuteCommitFailure(t *testing.T) {
	db := testutil.NewMemDB()
	exec := vm.NewExecutor(storage.NewStateDB(db), nil, vm.Oracles{}, vm.WithRegistry(testRegistry()))
	db.FailWrites = errors.New("disk full")

	if _, err := exec.Execute(context.Background(), call(t, methodBump, "alice")); err == nil {
		t.Fatal("expected commit error")
	}
	db.FailWrites = nil
	r, err := exec.Execute(context.Background(), call(t, methodBump, "alice"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Result != uint64(1) {
		t.Errorf("failed commit leaked into next call: result %v", r.Result)
	}
}

func TestExecuteRejectsBadCalls(t *testing.T) {
	exec, _, _ := newExecutor(t)
	if _, err := exec.Execute(context.Background(), nil); err == nil {
		t.Error("nil call accepted")
	}
	if _, err := exec.Execute(context.Background(), call(t, methodBump, "")); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("empty caller: got %v", err)
	}
	if _, err := exec.Execute(context.Background(), call(t, "nope", "alice")); err == nil {
		t.Error("unknown method accepted")
	}
}

func TestViewSeesCommittedState(t *testing.T) {
	exec, _, _ := newExecutor(t)
	_, _ = exec.Execute(context.Background(), call(t, methodBump, "alice"))
	var games uint64
	err := exec.View(func(s core.State) error {
		meta, err := s.GetMeta()
		games = meta.TotalGames
		return err
	})
	if err != nil || games != 1 {
		t.Errorf("View: games=%d err=%v", games, err)
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()
	reg := testRegistry()
	reg.Register(methodBump, nil)
}
