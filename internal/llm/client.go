// Package llm provides the language-understanding client used across the
// pipeline. Every call site must tolerate malformed replies and fall back to
// a deterministic local heuristic; the helpers in json.go support that.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message sent to the understanding service.
type Message struct {
	Role    Role
	Content string
}

// Client is the narrow interface to the language understanding service.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ErrUnavailable is returned when the understanding service cannot be
// reached at all. Callers degrade to their heuristic path on any error, but
// this one is also reported in the final user guidance.
var ErrUnavailable = errors.New("language understanding service unavailable")

// NewClient creates a client for the named provider.
func NewClient(provider, model string) (Client, error) {
	switch provider {
	case "claude", "anthropic":
		return NewClaudeClient(model)
	case "openai", "gpt":
		return NewOpenAIClient(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", provider)
	}
}
