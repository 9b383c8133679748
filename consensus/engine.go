// Package consensus combines oracle scores and community votes into the
// final weighted ranking of a game and settles experience into the registry.
package consensus

import (
	"fmt"
	"sort"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/registry"
)

// Score computes one member's result. All values are rounded half up from
// the exact rationals, so the outcome is independent of float rounding:
//
//	validator = sum/3
//	community = votes*100/n
//	total     = validator*0.6 + community*0.4 = (20*sum*n + 4000*votes) / (100*n)
func Score(scores core.Scores, scored bool, votes, members int) core.Ranking {
	var sum uint64
	if scored {
		sum = scores.Sum()
	}
	n := uint64(members)
	v := uint64(votes)

	r := core.Ranking{
		ValidatorScore: roundDiv(sum, 3),
		VotesReceived:  v,
	}
	if n == 0 {
		return r
	}
	r.CommunityScore = roundDiv(v*100, n)
	// validator weight applied to sum/3 → sum*W/3; community → v*100*C/n.
	// Over the common denominator 3*n*100 (weights in percent):
	num := sum*core.ValidatorWeight*n + 3*v*100*core.CommunityWeight
	den := 3 * n * 100
	r.TotalScore = roundDiv(num, den)
	r.XP = r.TotalScore * core.XPPerPoint
	return r
}

// roundDiv returns num/den rounded half up.
func roundDiv(num, den uint64) uint64 {
	return (2*num + den) / (2 * den)
}

// Rank scores every member of room in membership order and sorts them by
// total score, descending. Ties keep membership order.
func Rank(room *core.Room) []core.Ranking {
	rankings := make([]core.Ranking, 0, len(room.Members))
	for _, addr := range room.Members {
		scores, scored := room.Scores[addr]
		r := Score(scores, scored, room.VotesFor(addr), len(room.Members))
		r.Address = addr
		rankings = append(rankings, r)
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].TotalScore > rankings[j].TotalScore
	})
	return rankings
}

// Settle ranks room, credits every member exactly once (rank 0 is the sole
// winner) and records the rankings on the room. It must run once per game,
// when every member has voted.
func Settle(reg *registry.Registry, room *core.Room) ([]core.Ranking, error) {
	if !room.AllVoted() {
		return nil, fmt.Errorf("%w: %d of %d votes cast", core.ErrNotReady, len(room.Votes), len(room.Members))
	}
	if room.ConsensusReached {
		return nil, fmt.Errorf("%w: game %d already settled", core.ErrAlreadyDone, room.GameID)
	}

	rankings := Rank(room)
	for i := range rankings {
		p, err := reg.Require(rankings[i].Address)
		if err != nil {
			return nil, err
		}
		rankings[i].Name = p.Name
		if err := reg.ApplySettlement(rankings[i].Address, rankings[i].XP, i == 0); err != nil {
			return nil, fmt.Errorf("settle %q: %w", rankings[i].Address, err)
		}
	}
	room.Rankings = rankings
	room.ConsensusReached = true
	return rankings, nil
}
