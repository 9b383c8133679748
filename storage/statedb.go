package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tolelom/consensusclash/core"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
var statePrefixes []string

var (
	prefixPlayer = registerPrefix("player:")
	prefixRoom   = registerPrefix("room:")
	prefixTopic  = registerPrefix("topic:")
	prefixMeta   = registerPrefix("meta:")
)

const (
	keyTopic = "topic:weekly"
	keyMeta  = "meta:contract"
)

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation.
//
// StateDB is not safe for concurrent writers; vm.Executor serializes them.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) getJSON(key string, v any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *StateDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, data)
	return nil
}

// scan merges persisted entries under prefix with the write buffer.
func (s *StateDB) scan(prefix string) (map[string][]byte, error) {
	merged := make(map[string][]byte)
	it := s.db.NewIterator([]byte(prefix))
	for it.Next() {
		v := make([]byte, len(it.Value()))
		copy(v, it.Value())
		merged[string(it.Key())] = v
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	for k, v := range s.dirty {
		if strings.HasPrefix(k, prefix) {
			merged[k] = v
		}
	}
	for k := range s.deleted {
		delete(merged, k)
	}
	return merged, nil
}

// ---- Player ----

func (s *StateDB) GetPlayer(address string) (*core.Player, error) {
	var p core.Player
	if err := s.getJSON(prefixPlayer+address, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *StateDB) SetPlayer(p *core.Player) error {
	return s.setJSON(prefixPlayer+p.Address, p)
}

func (s *StateDB) Players() ([]*core.Player, error) {
	entries, err := s.scan(prefixPlayer)
	if err != nil {
		return nil, err
	}
	players := make([]*core.Player, 0, len(entries))
	for k, data := range entries {
		var p core.Player
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		players = append(players, &p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Seq < players[j].Seq })
	return players, nil
}

// ---- Room ----

func roomKey(gameID uint64) string {
	return fmt.Sprintf("%s%020d", prefixRoom, gameID)
}

func (s *StateDB) GetRoom(gameID uint64) (*core.Room, error) {
	var r core.Room
	if err := s.getJSON(roomKey(gameID), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *StateDB) SetRoom(r *core.Room) error {
	return s.setJSON(roomKey(r.GameID), r)
}

// ---- Topic / Meta ----

func (s *StateDB) GetTopic() (*core.WeeklyTopic, error) {
	var t core.WeeklyTopic
	err := s.getJSON(keyTopic, &t)
	if errors.Is(err, core.ErrNotFound) {
		return &core.WeeklyTopic{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *StateDB) SetTopic(t *core.WeeklyTopic) error {
	return s.setJSON(keyTopic, t)
}

func (s *StateDB) GetMeta() (*core.Meta, error) {
	var m core.Meta
	err := s.getJSON(keyMeta, &m)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Meta{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *StateDB) SetMeta(m *core.Meta) error {
	return s.setJSON(keyMeta, m)
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so that subsequent writes cannot corrupt them.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete contract state:
// persisted entries under every state prefix merged with the write buffer,
// sorted by key and hashed with length-prefix encoding. Index keys written
// by the indexer are not state and are not covered.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		entries, err := s.scan(prefix)
		if err != nil {
			return ""
		}
		for k, v := range entries {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	h := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(h[:])
}

// Commit atomically flushes the write buffer to the underlying DB via a
// Batch and then clears it.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}

// Pending reports whether the write buffer holds uncommitted changes.
func (s *StateDB) Pending() bool {
	return len(s.dirty) > 0 || len(s.deleted) > 0
}
