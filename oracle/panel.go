// Package oracle implements the scoring and topic boundaries used by the
// game modules: a validator panel that requires cross-validator agreement,
// LLM-backed evaluators and a deterministic static oracle for development.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tolelom/consensusclash/core"
)

// ErrNoAgreement is returned when two validators' scores are further apart
// than the agreement threshold allows.
var ErrNoAgreement = errors.New("validators did not agree")

// Evaluator is one validator of the panel. It returns the raw JSON scores
// document for req.
type Evaluator interface {
	Evaluate(ctx context.Context, req core.ScoreRequest) ([]byte, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, req core.ScoreRequest) ([]byte, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, req core.ScoreRequest) ([]byte, error) {
	return f(ctx, req)
}

// Panel is a core.ScoringOracle backed by several validators. Every
// validator scores the argument; the leader's (first) scores are returned
// only when all pairs agree within the threshold.
type Panel struct {
	validators []Evaluator
	threshold  float64
	logger     *slog.Logger
}

// NewPanel returns a panel over validators. threshold is used when a
// request does not carry its own.
func NewPanel(threshold float64, logger *slog.Logger, validators ...Evaluator) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{validators: validators, threshold: threshold, logger: logger}
}

// Score implements core.ScoringOracle.
func (p *Panel) Score(ctx context.Context, req core.ScoreRequest) ([]byte, error) {
	if len(p.validators) == 0 {
		return nil, errors.New("oracle: panel has no validators")
	}

	results := make([]core.Scores, len(p.validators))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range p.validators {
		g.Go(func() error {
			raw, err := v.Evaluate(gctx, req)
			if err != nil {
				return fmt.Errorf("validator %d: %w", i, err)
			}
			s, err := core.DecodeScores(raw)
			if err != nil {
				return fmt.Errorf("validator %d: %w", i, err)
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}

	threshold := req.AgreementThreshold
	if threshold <= 0 {
		threshold = p.threshold
	}
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			sim := Similarity(results[i], results[j])
			if sim < threshold {
				p.logger.Warn("validator disagreement", "a", i, "b", j, "similarity", sim, "threshold", threshold)
				return nil, fmt.Errorf("oracle: %w: %w (validators %d and %d at %.2f, need %.2f)",
					core.ErrOracleContract, ErrNoAgreement, i, j, sim, threshold)
			}
		}
	}

	p.logger.Debug("panel agreed", "validators", len(results), "scores", results[0])
	return json.Marshal(results[0])
}

// Similarity is 1 minus the mean absolute per-criterion difference, as a
// fraction of the 0-100 scale.
func Similarity(a, b core.Scores) float64 {
	diff := absDiff(a.Creativity, b.Creativity) +
		absDiff(a.Logic, b.Logic) +
		absDiff(a.Persuasiveness, b.Persuasiveness)
	return 1 - float64(diff)/3/100
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

