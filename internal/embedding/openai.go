package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

const (
	// OpenAIBaseURL is the OpenAI REST API base URL.
	OpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the default OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimensions is the output size of text-embedding-3-small.
	DefaultOpenAIDimensions = 1536

	// OpenAIRateLimit caps requests per second from one provider.
	OpenAIRateLimit = 50.0

	// DefaultOpenAIMaxRetries is the number of SDK retries on 429 and 5xx.
	DefaultOpenAIMaxRetries = 2
)

// OpenAIProvider generates embeddings with the OpenAI embeddings API.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	client     openai.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIKey sets the API key.
func WithOpenAIKey(key string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.apiKey = key
	}
}

// WithOpenAIModel sets the embedding model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

// WithOpenAIBaseURL sets a custom base URL (for testing or compatible servers).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = url
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.httpClient = hc
	}
}

// WithOpenAIMaxRetries sets how often the SDK retries a failed request.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.maxRetries = n
	}
}

// WithOpenAIRateLimit sets the request rate limit in requests per second.
func WithOpenAIRateLimit(rps float64) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewOpenAIProvider creates an OpenAI embedding provider.
func NewOpenAIProvider(opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		baseURL:    OpenAIBaseURL,
		model:      DefaultOpenAIModel,
		dimensions: DefaultOpenAIDimensions,
		maxRetries: DefaultOpenAIMaxRetries,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(OpenAIRateLimit), 10),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(p.httpClient),
		option.WithMaxRetries(p.maxRetries),
	)
	return p
}

// Configured reports whether an API key is set.
func (p *OpenAIProvider) Configured() bool {
	return p.apiKey != ""
}

// Embed generates an embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if !p.Configured() {
		return Embedding{}, ErrUnconfigured
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return Embedding{}, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return Embedding{}, openAIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return Embedding{}, fmt.Errorf("%w: no embedding data", ErrInvalidResponse)
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return Embedding{Vector: vec}, nil
}

// openAIError maps an SDK error onto the package's error taxonomy.
func openAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: openai rejected the API key", ErrUnconfigured)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: openai status %d", ErrRateLimited, apiErr.StatusCode)
	}
	return &APIError{
		Provider:   ProviderOpenAI,
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
	}
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}
