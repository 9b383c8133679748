package registry_test

import (
	"errors"
	"testing"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/internal/testutil"
	"github.com/tolelom/consensusclash/registry"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := registry.New(testutil.NewStateDB())

	created, err := reg.Register("alice", "Alice", "a.png")
	if err != nil || !created {
		t.Fatalf("first register: created=%v err=%v", created, err)
	}
	if err := reg.ApplySettlement("alice", 550, true); err != nil {
		t.Fatal(err)
	}

	created, err = reg.Register("alice", "Alicia", "b.png")
	if err != nil || created {
		t.Fatalf("second register: created=%v err=%v", created, err)
	}
	p, err := reg.Get("alice")
	if err != nil {
		t.Fatal(err)
	}
	want := core.Player{Address: "alice", Name: "Alicia", Avatar: "b.png", TotalXP: 550, GamesPlayed: 1, Wins: 1, Seq: 1}
	if *p != want {
		t.Errorf("got %+v want %+v", *p, want)
	}
}

func TestRegisterAssignsSequence(t *testing.T) {
	state := testutil.NewStateDB()
	reg := registry.New(state)
	for _, a := range []string{"c", "a", "b"} {
		if _, err := reg.Register(a, a, ""); err != nil {
			t.Fatal(err)
		}
	}
	meta, _ := state.GetMeta()
	if meta.PlayerCount != 3 {
		t.Errorf("player count: got %d want 3", meta.PlayerCount)
	}
	all, err := reg.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Address != "c" || all[2].Address != "b" {
		t.Errorf("registration order lost: %+v", all)
	}
}

func TestRequire(t *testing.T) {
	reg := registry.New(testutil.NewStateDB())
	if _, err := reg.Require("ghost"); !errors.Is(err, core.ErrNotRegistered) {
		t.Errorf("Require: got %v want ErrNotRegistered", err)
	}
	if _, err := reg.Get("ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get: got %v want ErrNotFound", err)
	}
	if err := reg.ApplySettlement("ghost", 10, false); !errors.Is(err, core.ErrNotRegistered) {
		t.Errorf("ApplySettlement: got %v want ErrNotRegistered", err)
	}
}

func TestApplySettlementAccumulates(t *testing.T) {
	reg := registry.New(testutil.NewStateDB())
	_, _ = reg.Register("bob", "Bob", "")
	_ = reg.ApplySettlement("bob", 300, false)
	_ = reg.ApplySettlement("bob", 0, false)
	_ = reg.ApplySettlement("bob", 810, true)
	p, _ := reg.Get("bob")
	if p.TotalXP != 1110 || p.GamesPlayed != 3 || p.Wins != 1 {
		t.Errorf("got %+v", p)
	}
}
