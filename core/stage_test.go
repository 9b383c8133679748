package core

import "testing"

func TestStageCanTransition(t *testing.T) {
	all := []Stage{StageLobby, StageActive, StageVoting, StageCompleted}
	allowed := map[[2]Stage]bool{
		{StageLobby, StageActive}:     true,
		{StageActive, StageVoting}:    true,
		{StageVoting, StageCompleted}: true,
		{StageLobby, StageLobby}:      true,
		{StageActive, StageLobby}:     true,
		{StageVoting, StageLobby}:     true,
		{StageCompleted, StageLobby}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Stage{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
	}
	if Stage("bogus").CanTransition(StageLobby) {
		t.Error("unknown stage must not transition")
	}
}

func TestStageInFlight(t *testing.T) {
	for _, s := range []Stage{StageLobby, StageActive, StageVoting} {
		if !s.InFlight() {
			t.Errorf("%s should be in flight", s)
		}
	}
	if StageCompleted.InFlight() {
		t.Error("completed should not be in flight")
	}
}

func TestWeekNumber(t *testing.T) {
	if WeekNumber(0) != 0 || WeekNumber(SecondsPerWeek-1) != 0 || WeekNumber(SecondsPerWeek) != 1 {
		t.Error("week boundaries wrong")
	}
}
