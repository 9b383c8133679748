package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Method identifies the state-mutating operation a call performs.
type Method string

const (
	MethodRegisterPlayer Method = "register_player"
	MethodGenerateTopic  Method = "generate_weekly_topic"
	MethodCreateRoom     Method = "create_game_room"
	MethodJoinRoom       Method = "join_game_room"
	MethodStartGame      Method = "start_game"
	MethodSubmitArgument Method = "submit_argument"
	MethodCastVote       Method = "cast_vote"
	MethodResetGame      Method = "reset_game"
)

// Call is the atomic unit of work against the contract. Caller is the opaque
// identity supplied by the host; Timestamp is unix seconds from the host clock.
type Call struct {
	ID        string          `json:"id"`
	Method    Method          `json:"method"`
	Caller    string          `json:"caller"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewCall builds a call stamped with the current time and a fresh ID.
func NewCall(method Method, caller string, payload any) (*Call, error) {
	return NewCallAt(method, caller, time.Now().Unix(), payload)
}

// NewCallAt is NewCall with an explicit timestamp.
func NewCallAt(method Method, caller string, ts int64, payload any) (*Call, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	return &Call{
		ID:        uuid.NewString(),
		Method:    method,
		Caller:    caller,
		Timestamp: ts,
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// RegisterPlayerPayload creates or updates the caller's profile.
type RegisterPlayerPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// SubmitArgumentPayload carries the caller's argument text.
type SubmitArgumentPayload struct {
	Argument string `json:"argument"`
}

// CastVotePayload names the member the caller votes for.
type CastVotePayload struct {
	VotedFor string `json:"voted_for"`
}
