package embedding

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the default Gemini embedding model.
	DefaultGeminiModel = "gemini-embedding-001"

	// DefaultGeminiDimensions is the requested output dimensionality.
	DefaultGeminiDimensions = 768
)

// GeminiProvider generates embeddings with the Gemini API through genai.
// The client is created on first use.
type GeminiProvider struct {
	apiKey     string
	model      string
	dimensions int

	mu     sync.Mutex
	client *genai.Client
}

// GeminiOption configures a GeminiProvider.
type GeminiOption func(*GeminiProvider)

// WithGeminiKey sets the API key.
func WithGeminiKey(key string) GeminiOption {
	return func(p *GeminiProvider) {
		p.apiKey = key
	}
}

// WithGeminiModel sets the embedding model.
func WithGeminiModel(model string) GeminiOption {
	return func(p *GeminiProvider) {
		p.model = model
	}
}

// WithGeminiDimensions sets the requested output dimensionality.
func WithGeminiDimensions(dims int) GeminiOption {
	return func(p *GeminiProvider) {
		p.dimensions = dims
	}
}

// NewGeminiProvider creates a Gemini embedding provider.
func NewGeminiProvider(opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		model:      DefaultGeminiModel,
		dimensions: DefaultGeminiDimensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configured reports whether an API key is set.
func (p *GeminiProvider) Configured() bool {
	return p.apiKey != ""
}

func (p *GeminiProvider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing genai client: %w", err)
	}
	p.client = client
	return client, nil
}

// Embed generates an embedding for the given text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if !p.Configured() {
		return Embedding{}, ErrUnconfigured
	}
	client, err := p.genaiClient(ctx)
	if err != nil {
		return Embedding{}, err
	}

	outputDim := int32(p.dimensions)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &outputDim}

	result, err := client.Models.EmbedContent(ctx, p.model, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, cfg)
	if err != nil {
		return Embedding{}, fmt.Errorf("%w: gemini: %v", ErrNetwork, err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return Embedding{}, fmt.Errorf("%w: no embedding returned", ErrInvalidResponse)
	}

	return Embedding{Vector: result.Embeddings[0].Values}, nil
}

// ModelName returns the name of the embedding model.
func (p *GeminiProvider) ModelName() string {
	return p.model
}

// Dimensions returns the requested vector dimensions.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}
