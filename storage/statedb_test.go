package storage_test

import (
	"errors"
	"testing"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/internal/testutil"
	"github.com/tolelom/consensusclash/storage"
)

func TestStateDBSingletonsDefaultToZero(t *testing.T) {
	s := testutil.NewStateDB()
	meta, err := s.GetMeta()
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if *meta != (core.Meta{}) {
		t.Errorf("meta: got %+v want zero", meta)
	}
	topic, err := s.GetTopic()
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if topic.Text != "" || topic.WeekNumber != 0 {
		t.Errorf("topic: got %+v want zero", topic)
	}
	if _, err := s.GetPlayer("nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetPlayer: got %v want ErrNotFound", err)
	}
	if _, err := s.GetRoom(1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetRoom: got %v want ErrNotFound", err)
	}
}

func TestStateDBSnapshotRevert(t *testing.T) {
	s := testutil.NewStateDB()
	_ = s.SetPlayer(&core.Player{Address: "alice", Name: "Alice", Seq: 1})

	id, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	_ = s.SetPlayer(&core.Player{Address: "alice", Name: "Mallory", Seq: 1})
	_ = s.SetRoom(core.NewRoom(1, "topic", 0))

	if err := s.RevertToSnapshot(id); err != nil {
		t.Fatalf("RevertToSnapshot: %v", err)
	}
	p, err := s.GetPlayer("alice")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Alice" {
		t.Errorf("name after revert: got %q want Alice", p.Name)
	}
	if _, err := s.GetRoom(1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("room should be gone after revert, got %v", err)
	}
	if err := s.RevertToSnapshot(id); err == nil {
		t.Error("reverting a consumed snapshot should fail")
	}
}

func TestStateDBCommitPersists(t *testing.T) {
	db := testutil.NewMemDB()
	s := storage.NewStateDB(db)
	_ = s.SetMeta(&core.Meta{Owner: "owner", CurrentGameID: 3})
	_ = s.SetRoom(core.NewRoom(3, "topic", 42))

	before := s.ComputeRoot()
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if s.Pending() {
		t.Error("buffer should be empty after commit")
	}

	reopened := storage.NewStateDB(db)
	if got := reopened.ComputeRoot(); got != before {
		t.Errorf("root changed across commit: %s != %s", got, before)
	}
	room, meta, err := core.CurrentRoom(reopened)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Owner != "owner" || room.GameID != 3 || room.CreatedAt != 42 {
		t.Errorf("reloaded state wrong: meta=%+v room=%+v", meta, room)
	}
}

func TestStateDBCommitFailureKeepsBuffer(t *testing.T) {
	db := testutil.NewMemDB()
	db.FailWrites = errors.New("disk full")
	s := storage.NewStateDB(db)
	_ = s.SetMeta(&core.Meta{Owner: "owner"})
	if err := s.Commit(); err == nil {
		t.Fatal("expected commit error")
	}
	if db.Len() != 0 {
		t.Errorf("failed batch wrote %d keys", db.Len())
	}
	if !s.Pending() {
		t.Error("buffer should survive a failed commit")
	}
}

func TestStateDBRootIsDeterministic(t *testing.T) {
	a := testutil.NewStateDB()
	b := testutil.NewStateDB()
	_ = a.SetPlayer(&core.Player{Address: "x", Seq: 1})
	_ = a.SetPlayer(&core.Player{Address: "y", Seq: 2})
	_ = b.SetPlayer(&core.Player{Address: "y", Seq: 2})
	_ = b.SetPlayer(&core.Player{Address: "x", Seq: 1})
	if a.ComputeRoot() != b.ComputeRoot() {
		t.Error("write order must not affect the root")
	}
	_ = b.SetPlayer(&core.Player{Address: "x", Seq: 1, TotalXP: 10})
	if a.ComputeRoot() == b.ComputeRoot() {
		t.Error("different state must give a different root")
	}
}

func TestStateDBPlayersOrderedBySeq(t *testing.T) {
	db := testutil.NewMemDB()
	s := storage.NewStateDB(db)
	_ = s.SetPlayer(&core.Player{Address: "zed", Seq: 1})
	_ = s.SetPlayer(&core.Player{Address: "amy", Seq: 3})
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	// One persisted, one buffered.
	_ = s.SetPlayer(&core.Player{Address: "mid", Seq: 2})

	players, err := s.Players()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, p := range players {
		got = append(got, p.Address)
	}
	want := []string{"zed", "mid", "amy"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
