package room

import (
	"fmt"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/vm"
)

// scoreArguments asks the scoring oracle about every argument, in submission
// order, and validates each response. It returns nothing unless every
// argument was scored.
func scoreArguments(ctx *vm.Context, room *core.Room) (map[string]core.Scores, error) {
	if ctx.Oracles.Scorer == nil {
		return nil, fmt.Errorf("scoring oracle not configured")
	}
	scores := make(map[string]core.Scores, len(room.Arguments))
	for _, arg := range room.Arguments {
		raw, err := ctx.Oracles.Scorer.Score(ctx.Ctx, core.ScoreRequest{
			Argument:           arg.Text,
			Topic:              room.Topic,
			AgreementThreshold: core.AgreementThreshold,
		})
		if err != nil {
			return nil, fmt.Errorf("score argument of %q: %w", arg.Player, err)
		}
		s, err := core.DecodeScores(raw)
		if err != nil {
			return nil, fmt.Errorf("score argument of %q: %w", arg.Player, err)
		}
		scores[arg.Player] = s
	}
	ctx.Logger.Info("arguments scored", "game_id", room.GameID, "count", len(scores))
	return scores, nil
}
