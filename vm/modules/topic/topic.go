// Package topic registers the weekly topic generation handler.
package topic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/events"
	"github.com/tolelom/consensusclash/vm"
)

// Prompt is sent verbatim to the topic source.
const Prompt = `Generate a fun, engaging debate topic for a community game.
The topic should be:
- Light-hearted but thought-provoking
- Something people can have strong but friendly opinions about
- Universal (not requiring specialized knowledge)
- Maximum 15 words

Examples:
- Is a hot dog a sandwich?
- Should AI have voting rights?
- Is cereal a type of soup?

Provide only the topic question, nothing else.`

func init() {
	vm.Register(core.MethodGenerateTopic, handleGenerate)
}

func handleGenerate(ctx *vm.Context, _ json.RawMessage) (any, error) {
	meta, err := ctx.State.GetMeta()
	if err != nil {
		return nil, err
	}
	if ctx.Caller() != meta.Owner {
		return nil, fmt.Errorf("%w: only the owner can generate topics", core.ErrUnauthorized)
	}

	current, err := ctx.State.GetTopic()
	if err != nil {
		return nil, err
	}
	week := core.WeekNumber(ctx.Now())
	if week <= current.WeekNumber {
		return nil, fmt.Errorf("%w: topic already set for week %d", core.ErrAlreadyDone, current.WeekNumber)
	}

	if ctx.Oracles.Topics == nil {
		return nil, fmt.Errorf("topic source not configured")
	}
	text, err := ctx.Oracles.Topics.GenerateTopic(ctx.Ctx, Prompt)
	if err != nil {
		return nil, fmt.Errorf("generate topic: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty topic", core.ErrOracleContract)
	}

	if err := ctx.State.SetTopic(&core.WeeklyTopic{Text: text, WeekNumber: week}); err != nil {
		return nil, err
	}
	ctx.Logger.Info("weekly topic set", "week", week)
	ctx.Emit(events.EventTopicGenerated, 0, map[string]any{"topic": text, "week": week})
	return text, nil
}
