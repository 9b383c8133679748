package core

// Stage is the phase a game room is in.
type Stage string

const (
	StageLobby     Stage = "lobby"
	StageActive    Stage = "active"
	StageVoting    Stage = "voting"
	StageCompleted Stage = "completed"
)

// next lists the single forward edge out of each stage.
var next = map[Stage]Stage{
	StageLobby:  StageActive,
	StageActive: StageVoting,
	StageVoting: StageCompleted,
}

// Valid reports whether s is one of the four known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageLobby, StageActive, StageVoting, StageCompleted:
		return true
	}
	return false
}

// InFlight reports whether a room in stage s blocks creation of a new room.
func (s Stage) InFlight() bool {
	return s == StageLobby || s == StageActive || s == StageVoting
}

// CanTransition reports whether moving from s to to is legal: one step
// forward, or back to lobby from anywhere (administrative reset).
func (s Stage) CanTransition(to Stage) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	if to == StageLobby {
		return true
	}
	return next[s] == to
}
