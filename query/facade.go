// Package query provides read-only projections of contract state. Nothing in
// this package writes; callers run it under vm.Executor.View for a consistent
// snapshot.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tolelom/consensusclash/core"
)

// GameState summarizes the current room.
type GameState struct {
	GameID             uint64     `json:"game_id"`
	Stage              core.Stage `json:"stage"`
	Topic              string     `json:"topic"`
	Players            int        `json:"players"`
	ArgumentsSubmitted int        `json:"arguments_submitted"`
	VotesCast          int        `json:"votes_cast"`
	ConsensusReached   bool       `json:"consensus_reached"`
	StartTime          int64      `json:"start_time"`
}

// PlayerView is a member's display identity.
type PlayerView struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
}

// ArgumentView is an argument as shown to voters. Submitter identity is
// always attached; arguments are not anonymized.
type ArgumentView struct {
	Text         string       `json:"text"`
	PlayerName   string       `json:"player_name"`
	PlayerAvatar string       `json:"player_avatar"`
	Scores       *core.Scores `json:"validator_scores,omitempty"`
}

// LeaderboardEntry is one row of the all-time leaderboard.
type LeaderboardEntry struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	TotalXP     uint64 `json:"total_xp"`
	GamesPlayed uint64 `json:"games_played"`
	Wins        uint64 `json:"wins"`
}

// Stats are contract-wide counters.
type Stats struct {
	TotalGames        uint64 `json:"total_games"`
	TotalPlayers      uint64 `json:"total_players"`
	CurrentWeek       int64  `json:"current_week"`
	WeeklyTopic       string `json:"weekly_topic"`
	ActiveRoomPlayers int    `json:"active_room_players"`
}

// Facade answers read queries against a core.State.
type Facade struct {
	state core.State
}

// New wraps state.
func New(state core.State) *Facade {
	return &Facade{state: state}
}

func (f *Facade) currentRoom() (*core.Room, error) {
	room, _, err := core.CurrentRoom(f.state)
	return room, err
}

// GameState summarizes the current room. Before any room exists it reports
// game 0 in the lobby.
func (f *Facade) GameState() (*GameState, error) {
	room, err := f.currentRoom()
	if err != nil {
		return nil, err
	}
	if room == nil {
		return &GameState{Stage: core.StageLobby}, nil
	}
	return &GameState{
		GameID:             room.GameID,
		Stage:              room.Stage,
		Topic:              room.Topic,
		Players:            len(room.Members),
		ArgumentsSubmitted: len(room.Arguments),
		VotesCast:          len(room.Votes),
		ConsensusReached:   room.ConsensusReached,
		StartTime:          room.StartTime,
	}, nil
}

// Player returns the profile for address, or nil when it is not registered.
func (f *Facade) Player(address string) (*core.Player, error) {
	p, err := f.state.GetPlayer(address)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (f *Facade) view(address string) (PlayerView, error) {
	p, err := f.state.GetPlayer(address)
	if err != nil {
		return PlayerView{}, fmt.Errorf("player %q: %w", address, err)
	}
	return PlayerView{Address: address, Name: p.Name, Avatar: p.Avatar}, nil
}

// RoomPlayers lists the current room's members in join order.
func (f *Facade) RoomPlayers() ([]PlayerView, error) {
	room, err := f.currentRoom()
	if err != nil || room == nil {
		return []PlayerView{}, err
	}
	out := make([]PlayerView, 0, len(room.Members))
	for _, addr := range room.Members {
		v, err := f.view(addr)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Arguments lists submitted arguments once the room reached voting; before
// that it is empty.
func (f *Facade) Arguments() ([]ArgumentView, error) {
	room, err := f.currentRoom()
	if err != nil || room == nil {
		return []ArgumentView{}, err
	}
	if room.Stage != core.StageVoting && room.Stage != core.StageCompleted {
		return []ArgumentView{}, nil
	}
	out := make([]ArgumentView, 0, len(room.Arguments))
	for _, arg := range room.Arguments {
		v, err := f.view(arg.Player)
		if err != nil {
			return nil, err
		}
		av := ArgumentView{Text: arg.Text, PlayerName: v.Name, PlayerAvatar: v.Avatar}
		if s, ok := room.Scores[arg.Player]; ok {
			av.Scores = &s
		}
		out = append(out, av)
	}
	return out, nil
}

// FinalRankings returns the settled rankings of the current room, or
// core.ErrNotReady while the game is not completed.
func (f *Facade) FinalRankings() ([]core.Ranking, error) {
	room, err := f.currentRoom()
	if err != nil {
		return nil, err
	}
	if room == nil || room.Stage != core.StageCompleted {
		return nil, fmt.Errorf("%w: game not completed yet", core.ErrNotReady)
	}
	return room.Rankings, nil
}

// Leaderboard returns the top profiles by total XP. Equal XP keeps
// registration order.
func (f *Facade) Leaderboard() ([]LeaderboardEntry, error) {
	players, err := f.state.Players()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].TotalXP > players[j].TotalXP
	})
	if len(players) > core.LeaderboardSize {
		players = players[:core.LeaderboardSize]
	}
	out := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		out = append(out, LeaderboardEntry{
			Address:     p.Address,
			Name:        p.Name,
			Avatar:      p.Avatar,
			TotalXP:     p.TotalXP,
			GamesPlayed: p.GamesPlayed,
			Wins:        p.Wins,
		})
	}
	return out, nil
}

// WeeklyTopic returns the current weekly topic text ("" when unset).
func (f *Facade) WeeklyTopic() (string, error) {
	t, err := f.state.GetTopic()
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

// Stats reports contract-wide counters as of now (unix seconds).
func (f *Facade) Stats(now int64) (*Stats, error) {
	meta, err := f.state.GetMeta()
	if err != nil {
		return nil, err
	}
	topic, err := f.state.GetTopic()
	if err != nil {
		return nil, err
	}
	room, err := f.currentRoom()
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalGames:   meta.TotalGames,
		TotalPlayers: meta.PlayerCount,
		CurrentWeek:  core.WeekNumber(now),
		WeeklyTopic:  topic.Text,
	}
	if room != nil {
		s.ActiveRoomPlayers = len(room.Members)
	}
	return s, nil
}

// CanPlayThisWeek always allows play; weekly play limits are not enforced.
func (f *Facade) CanPlayThisWeek(string) bool {
	return true
}

// Room returns any room by game id, including superseded ones.
func (f *Facade) Room(gameID uint64) (*core.Room, error) {
	return f.state.GetRoom(gameID)
}
