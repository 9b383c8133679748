package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/oracle"
)

func fixed(raw string) oracle.Evaluator {
	return oracle.EvaluatorFunc(func(context.Context, core.ScoreRequest) ([]byte, error) {
		return []byte(raw), nil
	})
}

func TestPanelAgreement(t *testing.T) {
	p := oracle.NewPanel(0.85, nil,
		fixed(`{"creativity":70,"logic":80,"persuasiveness":60}`),
		fixed(`{"creativity":75,"logic":78,"persuasiveness":65}`),
		fixed(`{"creativity":72,"logic":80,"persuasiveness":60}`),
	)
	raw, err := p.Score(context.Background(), core.ScoreRequest{Argument: "x"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	s, err := core.DecodeScores(raw)
	if err != nil {
		t.Fatal(err)
	}
	if s != (core.Scores{Creativity: 70, Logic: 80, Persuasiveness: 60}) {
		t.Errorf("leader scores expected, got %+v", s)
	}
}

func TestPanelDisagreement(t *testing.T) {
	p := oracle.NewPanel(0.85, nil,
		fixed(`{"creativity":90,"logic":90,"persuasiveness":90}`),
		fixed(`{"creativity":40,"logic":40,"persuasiveness":40}`),
	)
	_, err := p.Score(context.Background(), core.ScoreRequest{})
	if !errors.Is(err, oracle.ErrNoAgreement) || !errors.Is(err, core.ErrOracleContract) {
		t.Errorf("got %v", err)
	}

	// A looser threshold on the request wins over the panel default.
	if _, err := p.Score(context.Background(), core.ScoreRequest{AgreementThreshold: 0.4}); err != nil {
		t.Errorf("threshold 0.4: %v", err)
	}
}

func TestPanelValidatorFailure(t *testing.T) {
	var calls atomic.Int32
	failing := oracle.EvaluatorFunc(func(context.Context, core.ScoreRequest) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("timeout")
	})
	p := oracle.NewPanel(0.85, nil, fixed(`{"creativity":1,"logic":1,"persuasiveness":1}`), failing)
	if _, err := p.Score(context.Background(), core.ScoreRequest{}); err == nil {
		t.Error("validator error should fail the panel")
	}
	if calls.Load() != 1 {
		t.Errorf("failing validator called %d times", calls.Load())
	}

	bad := oracle.NewPanel(0.85, nil, fixed(`{"creativity":1,"logic":1}`))
	if _, err := bad.Score(context.Background(), core.ScoreRequest{}); !errors.Is(err, core.ErrOracleContract) {
		t.Errorf("malformed validator output: %v", err)
	}

	if _, err := oracle.NewPanel(0.85, nil).Score(context.Background(), core.ScoreRequest{}); err == nil {
		t.Error("empty panel should fail")
	}
}

func TestSimilarity(t *testing.T) {
	a := core.Scores{Creativity: 70, Logic: 80, Persuasiveness: 60}
	if oracle.Similarity(a, a) != 1 {
		t.Error("identical scores must be fully similar")
	}
	b := core.Scores{Creativity: 100, Logic: 50, Persuasiveness: 90}
	if got := oracle.Similarity(a, b); got < 0.69 || got > 0.71 {
		t.Errorf("similarity: got %v want 0.70", got)
	}
	if oracle.Similarity(a, b) != oracle.Similarity(b, a) {
		t.Error("similarity must be symmetric")
	}
}

func TestStaticIsDeterministic(t *testing.T) {
	req := core.ScoreRequest{Argument: "Cereal is soup because milk is broth."}
	a, _ := oracle.Static{}.Score(context.Background(), req)
	b, _ := oracle.Static{}.Score(context.Background(), req)
	if string(a) != string(b) {
		t.Error("static oracle must be deterministic")
	}
	if _, err := core.DecodeScores(a); err != nil {
		t.Errorf("static output invalid: %v", err)
	}
	var m map[string]int
	_ = json.Unmarshal(a, &m)
	for k, v := range m {
		if v < 40 || v > 100 {
			t.Errorf("%s out of range: %d", k, v)
		}
	}
}

func TestStaticTopicsRotate(t *testing.T) {
	src := &oracle.StaticTopics{Topics: []string{"one", "two"}}
	var got []string
	for range 3 {
		s, err := src.GenerateTopic(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, s)
	}
	if got[0] != "one" || got[1] != "two" || got[2] != "one" {
		t.Errorf("rotation: %v", got)
	}
}
