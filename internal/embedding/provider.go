package embedding

import (
	"context"
	"fmt"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// Configurable is implemented by providers that need a credential.
type Configurable interface {
	Configured() bool
}

// IsConfigured reports whether p has the credentials it needs. Providers
// that do not implement Configurable are always configured.
func IsConfigured(p Provider) bool {
	if p == nil {
		return false
	}
	if c, ok := p.(Configurable); ok {
		return c.Configured()
	}
	return true
}

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider  string
	Model     string
	APIKey    string
	OllamaURL string
}

// New builds the provider named by s.Provider. An empty name selects OpenAI.
// The Gemini client is constructed lazily, so New never performs network I/O.
func New(s Settings) (Provider, error) {
	switch s.Provider {
	case "", ProviderOpenAI:
		opts := []OpenAIOption{WithOpenAIKey(s.APIKey)}
		if s.Model != "" {
			opts = append(opts, WithOpenAIModel(s.Model))
		}
		return NewOpenAIProvider(opts...), nil
	case ProviderOllama:
		var opts []OllamaOption
		if s.OllamaURL != "" {
			opts = append(opts, WithBaseURL(s.OllamaURL))
		}
		if s.Model != "" {
			opts = append(opts, WithModel(s.Model), WithDimensions(0))
		}
		return NewOllamaProvider(opts...), nil
	case ProviderGemini:
		opts := []GeminiOption{WithGeminiKey(s.APIKey)}
		if s.Model != "" {
			opts = append(opts, WithGeminiModel(s.Model))
		}
		return NewGeminiProvider(opts...), nil
	case ProviderHash:
		return NewHashProvider(DefaultHashDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", s.Provider)
	}
}
