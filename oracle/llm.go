package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/openrouter"
)

const maxParseRetries = 3

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// LLMClient is the chat API the LLM oracles need. *openrouter.Client
// satisfies it.
type LLMClient interface {
	ChatCompletion(ctx context.Context, model string, messages []openrouter.Message) (*openrouter.ChatResponse, error)
}

const judgeSystem = `You are a debate judge evaluating arguments.
Rate the argument on three criteria (0-100 scale):
1. Creativity: How original and creative is the argument?
2. Logic: How logical and well-reasoned is the argument?
3. Persuasiveness: How convincing and impactful is the argument?

Respond ONLY with a JSON object in this exact format:
{"creativity": <score>, "logic": <score>, "persuasiveness": <score>}

Be fair but critical. Reserve high scores (90+) for truly exceptional arguments.`

const reformatHint = "Your previous response was not valid JSON. Return ONLY a JSON object, no markdown, no explanation."

// Judge is an Evaluator that asks one model to score an argument.
type Judge struct {
	llm   LLMClient
	model string
}

// NewJudge returns a judge using model.
func NewJudge(llm LLMClient, model string) *Judge {
	return &Judge{llm: llm, model: model}
}

// Evaluate implements Evaluator. The model is re-prompted when its reply
// holds no JSON object; the returned bytes are the extracted object.
func (j *Judge) Evaluate(ctx context.Context, req core.ScoreRequest) ([]byte, error) {
	system := openrouter.Message{Role: "system", Content: judgeSystem}
	user := openrouter.Message{
		Role:    "user",
		Content: fmt.Sprintf("Topic: %s\nArgument: %s", req.Topic, req.Argument),
	}

	for attempt := range maxParseRetries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgs := []openrouter.Message{system, user}
		if attempt > 0 {
			msgs = append(msgs, openrouter.Message{Role: "user", Content: reformatHint})
		}
		resp, err := j.llm.ChatCompletion(ctx, j.model, msgs)
		if err != nil {
			return nil, fmt.Errorf("judge %s: %w", j.model, err)
		}
		if obj, ok := extractJSON(resp.Content()); ok {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: judge %s returned no JSON after %d attempts", core.ErrOracleContract, j.model, maxParseRetries)
}

// extractJSON finds a JSON object in free-form model output: the whole
// text, a fenced code block, or the span from the first '{' to the last '}'.
func extractJSON(raw string) ([]byte, bool) {
	candidates := []string{strings.TrimSpace(raw)}
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	for _, c := range candidates {
		var obj map[string]json.RawMessage
		if json.Unmarshal([]byte(c), &obj) == nil {
			return []byte(c), true
		}
	}
	return nil, false
}

// Topics is a core.TopicSource backed by a chat model.
type Topics struct {
	llm   LLMClient
	model string
}

// NewTopics returns a topic source using model.
func NewTopics(llm LLMClient, model string) *Topics {
	return &Topics{llm: llm, model: model}
}

// GenerateTopic implements core.TopicSource.
func (t *Topics) GenerateTopic(ctx context.Context, prompt string) (string, error) {
	resp, err := t.llm.ChatCompletion(ctx, t.model, []openrouter.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("topic %s: %w", t.model, err)
	}
	topic := strings.Trim(strings.TrimSpace(resp.Content()), `"'`)
	if topic == "" {
		return "", fmt.Errorf("%w: topic %s returned an empty topic", core.ErrOracleContract, t.model)
	}
	return topic, nil
}
