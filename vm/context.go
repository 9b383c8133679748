package vm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
)

// Oracles bundles the external judging boundaries a call may consult.
type Oracles struct {
	Scorer core.ScoringOracle
	Topics core.TopicSource
}

// Context is passed to every Handler and provides access to the contract
// state, the triggering call, the oracle boundaries, and the event buffer.
type Context struct {
	Ctx     context.Context
	State   core.State
	Call    *core.Call
	Oracles Oracles
	Logger  *slog.Logger

	events []events.Event
}

// Now returns the host-supplied timestamp of the call in unix seconds.
func (c *Context) Now() int64 {
	return c.Call.Timestamp
}

// Caller returns the identity that issued the call.
func (c *Context) Caller() string {
	return c.Call.Caller
}

// Emit buffers an event. Buffered events are published only if the call
// commits.
func (c *Context) Emit(typ events.EventType, gameID uint64, data map[string]any) {
	c.events = append(c.events, events.Event{
		Type:      typ,
		CallID:    c.Call.ID,
		GameID:    gameID,
		Timestamp: c.Call.Timestamp,
		Data:      data,
	})
}

// Decode unmarshals a call payload into v. An empty payload leaves v untouched.
func Decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
