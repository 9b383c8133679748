package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

//go:generate go tool mockgen -destination=./mocks/oracle_mock.go -package=mocks . ScoringOracle,TopicSource

// Scores are the three oracle sub-scores for one argument, each in [0,100].
type Scores struct {
	Creativity     uint64 `json:"creativity"`
	Logic          uint64 `json:"logic"`
	Persuasiveness uint64 `json:"persuasiveness"`
}

// Sum adds the three sub-scores.
func (s Scores) Sum() uint64 {
	return s.Creativity + s.Logic + s.Persuasiveness
}

// ScoreRequest is what the core sends to the scoring oracle. The oracle must
// reach AgreementThreshold similarity across its validators before answering.
type ScoreRequest struct {
	Argument           string  `json:"argument"`
	Topic              string  `json:"topic"`
	AgreementThreshold float64 `json:"agreement_threshold"`
}

// ScoringOracle judges one argument and returns the raw JSON object
// {"creativity":n,"logic":n,"persuasiveness":n}. The core never trusts the
// payload; see DecodeScores.
type ScoringOracle interface {
	Score(ctx context.Context, req ScoreRequest) ([]byte, error)
}

// TopicSource produces the weekly debate question for a prompt.
type TopicSource interface {
	GenerateTopic(ctx context.Context, prompt string) (string, error)
}

// DecodeScores validates an oracle response: all three keys present, each an
// integer within [0,100]. Any violation wraps ErrOracleContract.
func DecodeScores(raw []byte) (Scores, error) {
	var wire struct {
		Creativity     *float64 `json:"creativity"`
		Logic          *float64 `json:"logic"`
		Persuasiveness *float64 `json:"persuasiveness"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Scores{}, fmt.Errorf("%w: decode scores: %v", ErrOracleContract, err)
	}
	fields := []struct {
		name string
		val  *float64
	}{
		{"creativity", wire.Creativity},
		{"logic", wire.Logic},
		{"persuasiveness", wire.Persuasiveness},
	}
	out := make([]uint64, len(fields))
	for i, f := range fields {
		if f.val == nil {
			return Scores{}, fmt.Errorf("%w: missing score %q", ErrOracleContract, f.name)
		}
		v := *f.val
		if v < 0 || v > 100 || v != math.Trunc(v) {
			return Scores{}, fmt.Errorf("%w: invalid %s score %v (want integer in [0,100])", ErrOracleContract, f.name, v)
		}
		out[i] = uint64(v)
	}
	return Scores{Creativity: out[0], Logic: out[1], Persuasiveness: out[2]}, nil
}
