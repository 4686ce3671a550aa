package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"
)

const (
	// OpenAIBaseURL is the OpenAI REST API base URL.
	OpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the default chat model.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultTimeout bounds one generation request.
	DefaultTimeout = 2 * time.Minute
)

// OpenAIGenerator calls the OpenAI chat completions API.
type OpenAIGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	client     openai.Client
}

// OpenAIOption configures an OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

// WithOpenAIKey sets the API key.
func WithOpenAIKey(key string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.apiKey = key
	}
}

// WithOpenAIModel sets the chat model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.model = model
	}
}

// WithOpenAIBaseURL sets a custom base URL (for testing).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.baseURL = url
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.httpClient = hc
	}
}

// WithOpenAIMaxRetries sets how often the SDK retries a failed request.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.maxRetries = n
	}
}

// NewOpenAIGenerator creates an OpenAI chat generator.
func NewOpenAIGenerator(opts ...OpenAIOption) *OpenAIGenerator {
	g := &OpenAIGenerator{
		baseURL:    OpenAIBaseURL,
		model:      DefaultOpenAIModel,
		maxRetries: 2,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.client = openai.NewClient(
		option.WithAPIKey(g.apiKey),
		option.WithBaseURL(g.baseURL),
		option.WithHTTPClient(g.httpClient),
		option.WithMaxRetries(g.maxRetries),
	)
	return g
}

// Configured reports whether an API key is set.
func (g *OpenAIGenerator) Configured() bool {
	return g.apiKey != ""
}

// ModelName returns the chat model.
func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

// Generate sends the conversation to the chat completions endpoint.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Configured() {
		return "", ErrUnconfigured
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: openai rejected the API key", ErrUnconfigured)
		}
		return "", generationError(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", generationError(ProviderOpenAI, fmt.Errorf("empty response"))
	}
	return resp.Choices[0].Message.Content, nil
}
