// Package indexer keeps per-player game history outside the state root so
// clients can list a player's completed games without scanning every room.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/storage"
)

const prefixPlayerGames = "idx:player:game:"

// Indexer subscribes to committed game events and updates lookup lists.
type Indexer struct {
	mu     sync.Mutex
	db     storage.DB
	logger *slog.Logger
}

// New creates an Indexer backed by db and subscribes it to emitter.
func New(db storage.DB, emitter *events.Emitter, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Indexer{db: db, logger: logger}
	emitter.Subscribe(events.EventGameCompleted, idx.onGameCompleted)
	return idx
}

// GetGamesByPlayer returns the ids of completed games address played, oldest
// first.
func (idx *Indexer) GetGamesByPlayer(address string) ([]uint64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.getList(prefixPlayerGames + address)
}

func (idx *Indexer) onGameCompleted(ev events.Event) {
	if ev.GameID == 0 {
		return
	}
	for _, member := range members(ev.Data["members"]) {
		if err := idx.addToList(prefixPlayerGames+member, ev.GameID); err != nil {
			idx.logger.Error("index game", "player", member, "game_id", ev.GameID, "err", err)
		}
	}
}

// members accepts both the in-process []string and a JSON-decoded []any.
func members(v any) []string {
	switch m := v.(type) {
	case []string:
		return m
	case []any:
		out := make([]string, 0, len(m))
		for _, x := range m {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (idx *Indexer) getList(key string) ([]uint64, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return []uint64{}, nil
		}
		return nil, err
	}
	var ids []uint64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal %s: %w", key, err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key string, id uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	data, err := json.Marshal(append(ids, id))
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
