// Package room registers the game-room state machine handlers: create, join,
// start, submit argument, cast vote and the administrative reset.
package room

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tolelom/consensusclash/consensus"
	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/registry"
	"github.com/tolelom/consensusclash/vm"
)

func init() {
	vm.Register(core.MethodCreateRoom, handleCreate)
	vm.Register(core.MethodJoinRoom, handleJoin)
	vm.Register(core.MethodStartGame, handleStart)
	vm.Register(core.MethodSubmitArgument, handleSubmitArgument)
	vm.Register(core.MethodCastVote, handleCastVote)
	vm.Register(core.MethodResetGame, handleReset)
}

// transition is the only place a room's stage changes.
func transition(ctx *vm.Context, room *core.Room, to core.Stage) error {
	from := room.Stage
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: cannot move game %d from %s to %s", core.ErrStageMismatch, room.GameID, from, to)
	}
	room.Stage = to
	ctx.Logger.Info("stage transition", "game_id", room.GameID, "from", from, "to", to)
	return nil
}

// currentRoom loads the current room and checks it is in stage want.
func currentRoom(ctx *vm.Context, want core.Stage) (*core.Room, error) {
	room, _, err := core.CurrentRoom(ctx.State)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("%w: no game room exists", core.ErrStageMismatch)
	}
	if room.Stage != want {
		return nil, fmt.Errorf("%w: game %d is %s, want %s", core.ErrStageMismatch, room.GameID, room.Stage, want)
	}
	return room, nil
}

func requireMember(room *core.Room, addr string) error {
	if !room.IsMember(addr) {
		return fmt.Errorf("%w: %q is not in game %d", core.ErrNotRegistered, addr, room.GameID)
	}
	return nil
}

func handleCreate(ctx *vm.Context, _ json.RawMessage) (any, error) {
	room, meta, err := core.CurrentRoom(ctx.State)
	if err != nil {
		return nil, err
	}
	if room != nil && room.Stage.InFlight() {
		return nil, fmt.Errorf("%w: game %d is still %s", core.ErrStageMismatch, room.GameID, room.Stage)
	}
	if _, err := registry.New(ctx.State).Require(ctx.Caller()); err != nil {
		return nil, err
	}
	topic, err := ctx.State.GetTopic()
	if err != nil {
		return nil, err
	}
	if topic.Text == "" {
		return nil, fmt.Errorf("%w: no topic set for this week", core.ErrNotReady)
	}

	meta.CurrentGameID++
	meta.TotalGames++
	next := core.NewRoom(meta.CurrentGameID, topic.Text, ctx.Now())
	if err := ctx.State.SetRoom(next); err != nil {
		return nil, err
	}
	if err := ctx.State.SetMeta(meta); err != nil {
		return nil, err
	}

	ctx.Emit(events.EventRoomCreated, next.GameID, map[string]any{
		"creator": ctx.Caller(),
		"topic":   next.Topic,
	})
	return next.GameID, nil
}

func handleJoin(ctx *vm.Context, _ json.RawMessage) (any, error) {
	room, err := currentRoom(ctx, core.StageLobby)
	if err != nil {
		return nil, err
	}
	caller := ctx.Caller()
	if _, err := registry.New(ctx.State).Require(caller); err != nil {
		return nil, err
	}
	if room.IsMember(caller) {
		return nil, fmt.Errorf("%w: %q already in game %d", core.ErrAlreadyDone, caller, room.GameID)
	}
	if len(room.Members) >= core.MaxPlayers {
		return nil, fmt.Errorf("%w: game %d is full (%d players)", core.ErrOutOfRange, room.GameID, core.MaxPlayers)
	}

	room.Members = append(room.Members, caller)
	if err := ctx.State.SetRoom(room); err != nil {
		return nil, err
	}
	ctx.Emit(events.EventRoomJoined, room.GameID, map[string]any{
		"player":  caller,
		"members": len(room.Members),
	})
	return len(room.Members), nil
}

func handleStart(ctx *vm.Context, _ json.RawMessage) (any, error) {
	room, err := currentRoom(ctx, core.StageLobby)
	if err != nil {
		return nil, err
	}
	if len(room.Members) < core.MinPlayers {
		return nil, fmt.Errorf("%w: need at least %d players, have %d", core.ErrOutOfRange, core.MinPlayers, len(room.Members))
	}
	if err := transition(ctx, room, core.StageActive); err != nil {
		return nil, err
	}
	room.StartTime = ctx.Now()
	if err := ctx.State.SetRoom(room); err != nil {
		return nil, err
	}
	ctx.Emit(events.EventGameStarted, room.GameID, map[string]any{
		"start_time": room.StartTime,
		"members":    room.Members,
	})
	return nil, nil
}

func handleSubmitArgument(ctx *vm.Context, payload json.RawMessage) (any, error) {
	var p core.SubmitArgumentPayload
	if err := vm.Decode(payload, &p); err != nil {
		return nil, err
	}
	room, err := currentRoom(ctx, core.StageActive)
	if err != nil {
		return nil, err
	}
	caller := ctx.Caller()
	if err := requireMember(room, caller); err != nil {
		return nil, err
	}
	if room.HasArgument(caller) {
		return nil, fmt.Errorf("%w: %q already submitted an argument", core.ErrAlreadyDone, caller)
	}
	n := utf8.RuneCountInString(p.Argument)
	if n < core.MinArgumentLength {
		return nil, fmt.Errorf("%w: argument too short (%d chars, min %d)", core.ErrOutOfRange, n, core.MinArgumentLength)
	}
	if n > core.MaxArgumentLength {
		return nil, fmt.Errorf("%w: argument too long (%d chars, max %d)", core.ErrOutOfRange, n, core.MaxArgumentLength)
	}

	room.Arguments = append(room.Arguments, core.Argument{Player: caller, Text: p.Argument})
	ctx.Emit(events.EventArgumentSubmitted, room.GameID, map[string]any{
		"player":    caller,
		"submitted": len(room.Arguments),
		"members":   len(room.Members),
	})

	if room.AllArgued() {
		if err := closeArguments(ctx, room); err != nil {
			return nil, err
		}
	}
	if err := ctx.State.SetRoom(room); err != nil {
		return nil, err
	}
	return room.Stage, nil
}

// closeArguments runs the oracle pass and moves the room to voting. Any
// failure aborts the whole submitting call.
func closeArguments(ctx *vm.Context, room *core.Room) error {
	scores, err := scoreArguments(ctx, room)
	if err != nil {
		return err
	}
	room.Scores = scores
	if err := transition(ctx, room, core.StageVoting); err != nil {
		return err
	}
	ctx.Emit(events.EventArgumentsScored, room.GameID, map[string]any{
		"scored": len(scores),
	})
	return nil
}

func handleCastVote(ctx *vm.Context, payload json.RawMessage) (any, error) {
	var p core.CastVotePayload
	if err := vm.Decode(payload, &p); err != nil {
		return nil, err
	}
	room, err := currentRoom(ctx, core.StageVoting)
	if err != nil {
		return nil, err
	}
	voter := ctx.Caller()
	if err := requireMember(room, voter); err != nil {
		return nil, err
	}
	if room.HasVoted(voter) {
		return nil, fmt.Errorf("%w: %q already voted", core.ErrAlreadyDone, voter)
	}
	if !room.IsMember(p.VotedFor) {
		return nil, fmt.Errorf("%w: %q is not in game %d", core.ErrInvalidTarget, p.VotedFor, room.GameID)
	}
	if p.VotedFor == voter {
		return nil, fmt.Errorf("%w: cannot vote for yourself", core.ErrInvalidTarget)
	}

	room.Votes = append(room.Votes, core.Vote{Voter: voter, Target: p.VotedFor})
	ctx.Emit(events.EventVoteCast, room.GameID, map[string]any{
		"voter":     voter,
		"voted_for": p.VotedFor,
	})

	if room.AllVoted() {
		if err := closeVoting(ctx, room); err != nil {
			return nil, err
		}
	}
	if err := ctx.State.SetRoom(room); err != nil {
		return nil, err
	}
	return room.Stage, nil
}

// closeVoting settles the game and moves the room to completed.
func closeVoting(ctx *vm.Context, room *core.Room) error {
	rankings, err := consensus.Settle(registry.New(ctx.State), room)
	if err != nil {
		return err
	}
	if err := transition(ctx, room, core.StageCompleted); err != nil {
		return err
	}
	ctx.Emit(events.EventGameCompleted, room.GameID, map[string]any{
		"winner":  rankings[0].Address,
		"members": room.Members,
	})
	return nil
}

func handleReset(ctx *vm.Context, _ json.RawMessage) (any, error) {
	room, meta, err := core.CurrentRoom(ctx.State)
	if err != nil {
		return nil, err
	}
	if ctx.Caller() != meta.Owner {
		return nil, fmt.Errorf("%w: only the owner can reset", core.ErrUnauthorized)
	}
	if room == nil {
		return nil, fmt.Errorf("%w: no game room to reset", core.ErrStageMismatch)
	}
	from := room.Stage
	room.Clear()
	if err := transition(ctx, room, core.StageLobby); err != nil {
		return nil, err
	}
	if err := ctx.State.SetRoom(room); err != nil {
		return nil, err
	}
	ctx.Logger.Warn("game reset by owner", "game_id", room.GameID, "from", from)
	ctx.Emit(events.EventGameReset, room.GameID, map[string]any{"from": string(from)})
	return nil, nil
}
