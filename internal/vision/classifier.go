package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/monitor"
	"github.com/supersurf/supersurf/internal/observability"
)

// Client wraps the OpenAI API for the vision tasks: classifying interface
// state, locating UI elements, and enhancing prompts.
type Client struct {
	api   openai.Client
	model string
	log   zerolog.Logger
}

// NewClient creates a vision client. model may be empty to use the default.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is empty")
	}
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
		log:   observability.WithComponent("vision"),
	}, nil
}

const classifyInstructions = `Answer with JSON only, no markdown, in this exact shape:
{"state": "<still_working|user_input_required|done>", "reasoning": "<one short sentence>"}`

// Classify decides what state the screenshot shows. Unrecognized answers
// default to still_working: a confused model must never hand control back
// while the interface may still be busy.
func (c *Client) Classify(ctx context.Context, imagePath, prompt string) (monitor.Observation, error) {
	content, err := c.askAboutImage(ctx, imagePath, prompt+"\n\n"+classifyInstructions)
	if err != nil {
		return monitor.Observation{}, err
	}

	raw, ok := extractJSON(content)
	if !ok {
		return monitor.Observation{}, fmt.Errorf("no JSON in model reply: %q", content)
	}

	var parsed struct {
		State     string `json:"state"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return monitor.Observation{}, fmt.Errorf("parse state reply: %w", err)
	}

	state := monitor.State(parsed.State)
	switch state {
	case monitor.StateStillWorking, monitor.StateUserInputRequired, monitor.StateDone:
	default:
		c.log.Warn().Str("state", parsed.State).Msg("unrecognized state, assuming still working")
		state = monitor.StateStillWorking
	}

	return monitor.Observation{State: state, Reasoning: parsed.Reasoning}, nil
}

// askAboutImage sends one user message holding the prompt text and the image
// and returns the raw reply content.
func (c *Client) askAboutImage(ctx context.Context, imagePath, prompt string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Model: c.model,
	})
	if err != nil {
		observability.RecordError("openai_request", "vision")
		return "", fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty vision reply")
	}
	return resp.Choices[0].Message.Content, nil
}
