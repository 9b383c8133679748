package topic_test

import (
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/core/mocks"
	"github.com/tolelom/consensusclash/internal/testutil"
	"github.com/tolelom/consensusclash/vm"
	"github.com/tolelom/consensusclash/vm/modules/topic"
)

func setup(t *testing.T) (*testutil.Harness, *mocks.MockTopicSource) {
	t.Helper()
	ctrl := gomock.NewController(t)
	src := mocks.NewMockTopicSource(ctrl)
	return testutil.NewHarness(t, vm.Oracles{Topics: src}), src
}

func TestGenerateOncePerWeek(t *testing.T) {
	h, src := setup(t)
	src.EXPECT().GenerateTopic(gomock.Any(), topic.Prompt).Return("Is a hot dog a sandwich?", nil)

	r := h.MustCall(core.MethodGenerateTopic, testutil.Owner, nil)
	if r.Result != "Is a hot dog a sandwich?" {
		t.Errorf("result: %v", r.Result)
	}
	got, _ := h.State.GetTopic()
	if got.WeekNumber != core.WeekNumber(testutil.StartTime) {
		t.Errorf("week: got %d", got.WeekNumber)
	}

	// Same week: rejected without consulting the source.
	h.Now += 3600
	_, err := h.Call(core.MethodGenerateTopic, testutil.Owner, nil)
	if !errors.Is(err, core.ErrAlreadyDone) {
		t.Errorf("second call same week: got %v", err)
	}

	h.Now += core.SecondsPerWeek
	src.EXPECT().GenerateTopic(gomock.Any(), gomock.Any()).Return("Should AI have voting rights?", nil)
	h.MustCall(core.MethodGenerateTopic, testutil.Owner, nil)
	got, _ = h.State.GetTopic()
	if got.Text != "Should AI have voting rights?" {
		t.Errorf("topic: %+v", got)
	}
}

func TestGenerateOwnerOnly(t *testing.T) {
	h, _ := setup(t)
	_, err := h.Call(core.MethodGenerateTopic, "alice", nil)
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("got %v want ErrUnauthorized", err)
	}
}

func TestGenerateSourceFailures(t *testing.T) {
	h, src := setup(t)
	src.EXPECT().GenerateTopic(gomock.Any(), gomock.Any()).Return("", errors.New("rate limited"))
	if _, err := h.Call(core.MethodGenerateTopic, testutil.Owner, nil); err == nil {
		t.Error("source error should reject the call")
	}

	src.EXPECT().GenerateTopic(gomock.Any(), gomock.Any()).Return("   ", nil)
	_, err := h.Call(core.MethodGenerateTopic, testutil.Owner, nil)
	if !errors.Is(err, core.ErrOracleContract) {
		t.Errorf("blank topic: got %v", err)
	}

	got, _ := h.State.GetTopic()
	if got.Text != "" || got.WeekNumber != 0 {
		t.Errorf("failed generation stored %+v", got)
	}

	// A failed attempt does not use up the week.
	src.EXPECT().GenerateTopic(gomock.Any(), gomock.Any()).Return("Is cereal a soup?", nil)
	h.MustCall(core.MethodGenerateTopic, testutil.Owner, nil)
}
