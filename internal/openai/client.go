package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client generates shader text through an OpenAI-compatible chat endpoint.
type Client struct {
	api   sdk.Client
	model string
}

// NewClient creates a client. An empty baseURL uses the official API.
func NewClient(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The shader validator owns the retry budget.
		option.WithMaxRetries(0),
		option.WithRequestTimeout(90 * time.Second),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: sdk.NewClient(opts...), model: model}
}

// Generate sends the system message and prompt and returns the first choice.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(prompt),
		},
		Model:       c.model,
		Temperature: sdk.Float(1.0),
		MaxTokens:   sdk.Int(800),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
