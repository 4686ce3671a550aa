package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultClaudeModel is the default Claude chat model.
const DefaultClaudeModel = "claude-3-5-haiku-latest"

// ClaudeGenerator calls the Anthropic Messages API.
type ClaudeGenerator struct {
	apiKey string
	model  string
	client anthropic.Client
}

// NewClaudeGenerator creates a Claude generator. Extra request options, such
// as option.WithBaseURL, are passed to the SDK client.
func NewClaudeGenerator(apiKey, model string, opts ...option.RequestOption) *ClaudeGenerator {
	if model == "" {
		model = DefaultClaudeModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeGenerator{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(opts...),
	}
}

// Configured reports whether an API key is set.
func (g *ClaudeGenerator) Configured() bool {
	return g.apiKey != ""
}

// ModelName returns the chat model.
func (g *ClaudeGenerator) ModelName() string {
	return g.model
}

// Generate sends the conversation to Claude. System messages become the
// request's system prompt.
func (g *ClaudeGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Configured() {
		return "", ErrUnconfigured
	}

	systemText, turns := splitSystem(req.Messages)
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", generationError(ProviderClaude, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", generationError(ProviderClaude, fmt.Errorf("empty response"))
	}
	return out.String(), nil
}
