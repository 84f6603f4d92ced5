package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeClient implements Client using Anthropic's Claude.
type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

// NewClaudeClient creates a new Claude client.
func NewClaudeClient(model string) (*ClaudeClient, error) {
	apiKey := os.Getenv("AUTOPILOT_ANTHROPIC_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("AUTOPILOT_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeClient{
		client: &client,
		model:  model,
	}, nil
}

// Complete sends the messages to Claude and returns the raw reply text.
func (c *ClaudeClient) Complete(ctx context.Context, messages []Message) (string, error) {
	var system []anthropic.TextBlockParam
	var chat []anthropic.MessageParam

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		default:
			chat = append(chat, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 2048,
		System:    system,
		Messages:  chat,
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("empty response from Claude")
}
