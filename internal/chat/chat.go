// Package chat composes retrieval-augmented prompts about a paper and sends
// them to a text generation model.
package chat

import (
	"context"
	"errors"
	"fmt"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single generation call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Generator produces a reply for a conversation.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	ModelName() string
}

// Configurable is implemented by generators that need a credential.
type Configurable interface {
	Configured() bool
}

// IsConfigured reports whether g has the credentials it needs.
func IsConfigured(g Generator) bool {
	if g == nil {
		return false
	}
	if c, ok := g.(Configurable); ok {
		return c.Configured()
	}
	return true
}

var (
	// ErrUnconfigured indicates no credential is configured for the generator.
	ErrUnconfigured = errors.New("chat provider not configured")

	// ErrGeneration indicates the generation call failed or returned nothing.
	ErrGeneration = errors.New("generation failed")
)

// IsUnconfigured returns true if err indicates a missing credential.
func IsUnconfigured(err error) bool {
	return errors.Is(err, ErrUnconfigured)
}

func generationError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGeneration, provider, err)
}

// splitSystem separates system messages from the conversation. Multiple
// system messages are joined with blank lines.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Settings selects and configures a generator.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
}

// New builds the generator named by s.Provider. An empty name selects OpenAI.
func New(s Settings) (Generator, error) {
	switch s.Provider {
	case "", ProviderOpenAI:
		opts := []OpenAIOption{WithOpenAIKey(s.APIKey)}
		if s.Model != "" {
			opts = append(opts, WithOpenAIModel(s.Model))
		}
		return NewOpenAIGenerator(opts...), nil
	case ProviderClaude:
		return NewClaudeGenerator(s.APIKey, s.Model), nil
	case ProviderGemini:
		return NewGeminiGenerator(s.APIKey, s.Model), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", s.Provider)
	}
}
