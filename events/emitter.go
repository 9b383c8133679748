package events

import (
	"log/slog"
	"sync"
)

// EventType labels what happened.
type EventType string

const (
	EventCallExecuted      EventType = "call_executed"
	EventPlayerRegistered  EventType = "player_registered"
	EventTopicGenerated    EventType = "topic_generated"
	EventRoomCreated       EventType = "room_created"
	EventRoomJoined        EventType = "room_joined"
	EventGameStarted       EventType = "game_started"
	EventArgumentSubmitted EventType = "argument_submitted"
	EventArgumentsScored   EventType = "arguments_scored"
	EventVoteCast          EventType = "vote_cast"
	EventGameCompleted     EventType = "game_completed"
	EventGameReset         EventType = "game_reset"
)

// Event carries a typed payload emitted after a committed state change.
type Event struct {
	Type      EventType      `json:"type"`
	CallID    string         `json:"call_id"`
	GameID    uint64         `json:"game_id,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

type subscription struct {
	id uint64
	h  Handler
}

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventType][]subscription
	all      []subscription
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]subscription)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers[typ] = append(e.handlers[typ], subscription{id: e.nextID, h: h})
}

// SubscribeAll registers h for every event type. The returned func removes it.
func (e *Emitter) SubscribeAll(h Handler) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.all = append(e.all, subscription{id: id, h: h})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.all {
			if s.id == id {
				e.all = append(e.all[:i:i], e.all[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev to all subscribers synchronously, typed subscribers first.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot abort the call that produced the event.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	subs := make([]subscription, 0, len(e.handlers[ev.Type])+len(e.all))
	subs = append(subs, e.handlers[ev.Type]...)
	subs = append(subs, e.all...)
	e.mu.RUnlock()
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event handler panicked", "type", ev.Type, "panic", r)
				}
			}()
			s.h(ev)
		}()
	}
}
