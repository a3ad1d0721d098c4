package vision

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

const enhanceSystemPrompt = `You rewrite terse spoken instructions into clear, complete prompts
for an AI coding assistant. Keep the user's intent exactly; add the context and structure a good
written prompt would have. Never answer the instruction itself.

Answer with JSON only, no markdown, in this exact shape:
{"prompt": "<the rewritten prompt>", "requiredIntelligenceLevel": "<low|medium|high>"}`

// Enhance rewrites a spoken prompt before it is typed into the IDE. It
// satisfies the dispatcher's Enhancer dependency.
func (c *Client) Enhance(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(enhanceSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("enhance request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty enhance reply")
	}

	raw, ok := extractJSON(resp.Choices[0].Message.Content)
	if !ok {
		return "", fmt.Errorf("no JSON in enhance reply")
	}

	var parsed struct {
		Prompt            string `json:"prompt"`
		IntelligenceLevel string `json:"requiredIntelligenceLevel"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fmt.Errorf("parse enhance reply: %w", err)
	}
	if parsed.Prompt == "" {
		return "", fmt.Errorf("enhance reply has no prompt")
	}

	c.log.Debug().Str("level", parsed.IntelligenceLevel).Msg("prompt enhanced")
	return parsed.Prompt, nil
}
