package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the default Gemini chat model.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator calls the Gemini API through genai. The client is created
// on first use.
type GeminiGenerator struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini generator.
func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{apiKey: apiKey, model: model}
}

// Configured reports whether an API key is set.
func (g *GeminiGenerator) Configured() bool {
	return g.apiKey != ""
}

// ModelName returns the chat model.
func (g *GeminiGenerator) ModelName() string {
	return g.model
}

func (g *GeminiGenerator) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing genai client: %w", err)
	}
	g.client = client
	return client, nil
}

// Generate sends the conversation to Gemini. System messages become the
// system instruction; assistant turns use the model role.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Configured() {
		return "", ErrUnconfigured
	}
	client, err := g.genaiClient(ctx)
	if err != nil {
		return "", generationError(ProviderGemini, err)
	}

	systemText, turns := splitSystem(req.Messages)
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", generationError(ProviderGemini, err)
	}

	var out strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				out.WriteString(part.Text)
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	if out.Len() == 0 {
		return "", generationError(ProviderGemini, fmt.Errorf("empty response"))
	}
	return out.String(), nil
}
