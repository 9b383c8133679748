package core

// Player is a registered participant's profile. Address is the opaque caller
// identity supplied by the host.
type Player struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	TotalXP     uint64 `json:"total_xp"`
	GamesPlayed uint64 `json:"games_played"`
	Wins        uint64 `json:"wins"`
	Seq         uint64 `json:"seq"` // 1-based registration order
}

// ApplySettlement credits one finished game to the profile.
func (p *Player) ApplySettlement(xp uint64, winner bool) {
	p.TotalXP += xp
	p.GamesPlayed++
	if winner {
		p.Wins++
	}
}

// WeeklyTopic is the debate question for one week bucket.
type WeeklyTopic struct {
	Text       string `json:"text"`
	WeekNumber int64  `json:"week_number"`
}

// Meta holds contract-wide counters and the owner identity.
type Meta struct {
	Owner         string `json:"owner"`
	CurrentGameID uint64 `json:"current_game_id"` // 0 → no room yet
	TotalGames    uint64 `json:"total_games"`
	PlayerCount   uint64 `json:"player_count"`
}

// State is the full contract state interface. Implementations must be
// snapshot-able so the executor can roll back failed calls.
type State interface {
	// Players
	GetPlayer(address string) (*Player, error)
	SetPlayer(p *Player) error
	// Players returns every profile ordered by registration sequence.
	Players() ([]*Player, error)

	// Rooms
	GetRoom(gameID uint64) (*Room, error)
	SetRoom(r *Room) error

	// Singletons; both return zero values when nothing is stored yet.
	GetTopic() (*WeeklyTopic, error)
	SetTopic(t *WeeklyTopic) error
	GetMeta() (*Meta, error)
	SetMeta(m *Meta) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the persisted
	// state merged with the current write buffer, without flushing.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}

// CurrentRoom returns the room referenced by meta, or nil when none was
// ever created.
func CurrentRoom(s State) (*Room, *Meta, error) {
	meta, err := s.GetMeta()
	if err != nil {
		return nil, nil, err
	}
	if meta.CurrentGameID == 0 {
		return nil, meta, nil
	}
	room, err := s.GetRoom(meta.CurrentGameID)
	if err != nil {
		return nil, nil, err
	}
	return room, meta, nil
}
