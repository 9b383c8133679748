package oracle

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync/atomic"

	"github.com/tolelom/consensusclash/core"
)

// Static is an offline Evaluator and core.ScoringOracle. Scores are derived
// from a hash of the argument, so the same text always gets the same scores.
type Static struct{}

// Evaluate implements Evaluator.
func (Static) Evaluate(_ context.Context, req core.ScoreRequest) ([]byte, error) {
	h := fnv.New64a()
	h.Write([]byte(req.Argument))
	sum := h.Sum64()
	s := core.Scores{
		Creativity:     40 + sum%61,
		Logic:          40 + (sum>>16)%61,
		Persuasiveness: 40 + (sum>>32)%61,
	}
	return json.Marshal(s)
}

// Score implements core.ScoringOracle.
func (s Static) Score(ctx context.Context, req core.ScoreRequest) ([]byte, error) {
	return s.Evaluate(ctx, req)
}

// DefaultTopics is the rotation used by StaticTopics when none is given.
var DefaultTopics = []string{
	"Pineapple belongs on pizza",
	"Remote work is better than office work",
	"Cats make better companions than dogs",
	"Breakfast is the most important meal of the day",
}

// StaticTopics is an offline core.TopicSource that rotates through a fixed
// list.
type StaticTopics struct {
	Topics []string
	next   atomic.Uint64
}

// GenerateTopic implements core.TopicSource.
func (t *StaticTopics) GenerateTopic(context.Context, string) (string, error) {
	topics := t.Topics
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	i := t.next.Add(1) - 1
	return topics[i%uint64(len(topics))], nil
}
