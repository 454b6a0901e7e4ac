// Package classifier adapts the OpenAI Responses API to the pipeline's
// Classifier interface: prompt construction, strict-JSON response parsing
// and a bounded retry policy at the collaborator boundary.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/daniltm/prodbot/internal/pipeline"
)

const defaultModel = "o4-mini"

// Client calls the language model for semantic classification.
type Client struct {
	api   openai.Client
	model string
}

// New creates a classifier client. Model defaults to o4-mini when empty.
func New(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// ClassifyActivities sends the ordered activity names to the model and
// decodes the JSON array it returns. The result pairs positionally with
// names; the caller enforces the cardinality invariant.
func (c *Client) ClassifyActivities(ctx context.Context, names []string, ref time.Time, opts []pipeline.SphereOption) ([]pipeline.ClassifiedActivity, error) {
	prompt := buildTaskPrompt(names, ref.Format("2006-01-02 15:04:05"), opts)

	raw, err := c.complete(ctx, taskSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var out []pipeline.ClassifiedActivity
	if err := decodeArray(raw, &out); err != nil {
		return nil, fmt.Errorf("decode activity classification: %w", err)
	}
	return out, nil
}

// ClassifyThoughts sends a whole thoughts block to the model with the
// thought prompt. No positional constraint applies.
func (c *Client) ClassifyThoughts(ctx context.Context, text string, ref time.Time, opts []pipeline.SphereOption) ([]pipeline.Thought, error) {
	prompt := buildThoughtPrompt(text, ref.Format("2006-01-02 15:04:05"), opts)

	raw, err := c.complete(ctx, thoughtSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var out []pipeline.Thought
	if err := decodeArray(raw, &out); err != nil {
		return nil, fmt.Errorf("decode thought classification: %w", err)
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, instructions, input string) (string, error) {
	params := responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := callWithRetry(ctx, &c.api, params)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	out := resp.OutputText()
	slog.Debug("classifier response", "model", c.model, "chars", len(out))
	return out, nil
}

// decodeArray parses a model response expected to contain a JSON array,
// tolerating an optional markdown code fence around it. Anything that is
// not an array is an error: the caller treats it as "no result".
func decodeArray(raw string, v any) error {
	s := stripCodeFence(raw)
	if s == "" {
		return fmt.Errorf("empty response")
	}
	if s[0] != '[' {
		return fmt.Errorf("response is not a JSON array")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// stripCodeFence removes a wrapping ```/```json fence if present and trims
// surrounding whitespace.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[]{}") {
		// Language tag line like "json".
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
