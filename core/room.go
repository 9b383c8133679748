package core

import "slices"

// Argument is one member's submission.
type Argument struct {
	Player string `json:"player"`
	Text   string `json:"text"`
}

// Vote is one member's community vote.
type Vote struct {
	Voter  string `json:"voter"`
	Target string `json:"target"`
}

// Ranking is a member's settled result for a completed game.
type Ranking struct {
	Address        string `json:"address"`
	Name           string `json:"name"`
	ValidatorScore uint64 `json:"validator_score"`
	CommunityScore uint64 `json:"community_score"`
	TotalScore     uint64 `json:"total_score"`
	VotesReceived  uint64 `json:"votes_received"`
	XP             uint64 `json:"xp"`
}

// Room is one game instance. Arguments and Votes keep arrival order.
type Room struct {
	GameID           uint64            `json:"game_id"`
	Stage            Stage             `json:"stage"`
	Topic            string            `json:"topic"`
	CreatedAt        int64             `json:"created_at"`
	StartTime        int64             `json:"start_time"`
	Members          []string          `json:"members"`
	Arguments        []Argument        `json:"arguments"`
	Scores           map[string]Scores `json:"scores"`
	Votes            []Vote            `json:"votes"`
	ConsensusReached bool              `json:"consensus_reached"`
	Rankings         []Ranking         `json:"rankings"`
}

// NewRoom returns an empty lobby room.
func NewRoom(gameID uint64, topic string, createdAt int64) *Room {
	return &Room{
		GameID:    gameID,
		Stage:     StageLobby,
		Topic:     topic,
		CreatedAt: createdAt,
		Members:   []string{},
		Arguments: []Argument{},
		Scores:    map[string]Scores{},
		Votes:     []Vote{},
		Rankings:  []Ranking{},
	}
}

// IsMember reports whether address joined the room.
func (r *Room) IsMember(address string) bool {
	return slices.Contains(r.Members, address)
}

// HasArgument reports whether address already submitted.
func (r *Room) HasArgument(address string) bool {
	return slices.ContainsFunc(r.Arguments, func(a Argument) bool { return a.Player == address })
}

// HasVoted reports whether address already voted.
func (r *Room) HasVoted(address string) bool {
	return slices.ContainsFunc(r.Votes, func(v Vote) bool { return v.Voter == address })
}

// VotesFor counts votes targeting address.
func (r *Room) VotesFor(address string) int {
	n := 0
	for _, v := range r.Votes {
		if v.Target == address {
			n++
		}
	}
	return n
}

// AllArgued reports whether every member has submitted.
func (r *Room) AllArgued() bool {
	return len(r.Members) > 0 && len(r.Arguments) == len(r.Members)
}

// AllVoted reports whether every member has voted.
func (r *Room) AllVoted() bool {
	return len(r.Members) > 0 && len(r.Votes) == len(r.Members)
}

// Clear drops everything a reset discards. GameID and Topic survive; the
// stage is left to the caller.
func (r *Room) Clear() {
	r.StartTime = 0
	r.Members = []string{}
	r.Arguments = []Argument{}
	r.Scores = map[string]Scores{}
	r.Votes = []Vote{}
	r.ConsensusReached = false
	r.Rankings = []Ranking{}
}
