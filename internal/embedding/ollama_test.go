package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.ModelName() != DefaultOllamaModel {
		t.Errorf("ModelName() = %s, want %s", provider.ModelName(), DefaultOllamaModel)
	}
	if provider.Dimensions() != DefaultOllamaDimensions {
		t.Errorf("Dimensions() = %d, want %d", provider.Dimensions(), DefaultOllamaDimensions)
	}
	if !IsConfigured(provider) {
		t.Error("ollama should not need a credential")
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	provider := NewOllamaProvider(
		WithBaseURL("http://custom:8080"),
		WithModel("custom-model"),
		WithDimensions(1024),
		WithTimeout(time.Minute),
	)

	if provider.baseURL != "http://custom:8080" {
		t.Errorf("baseURL = %s", provider.baseURL)
	}
	if provider.ModelName() != "custom-model" {
		t.Errorf("ModelName() = %s", provider.ModelName())
	}
	if provider.Dimensions() != 1024 {
		t.Errorf("Dimensions() = %d", provider.Dimensions())
	}
	if provider.client.Timeout != time.Minute {
		t.Errorf("timeout = %v", provider.client.Timeout)
	}
}

func TestOllamaProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ollamaEmbeddingsPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Prompt == "fail" {
			http.Error(w, "model missing", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 2, 3}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(3))
	emb, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d", emb.Dimensions())
	}

	_, err = p.Embed(context.Background(), "fail")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want APIError 404", err)
	}

	wrongDims := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(8))
	if _, err := wrongDims.Embed(context.Background(), "hello"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestOllamaProvider_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOllamaProvider(WithBaseURL(url))
	if _, err := p.Embed(context.Background(), "x"); !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
}

func TestFormatErrorBody(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple error message", input: "error occurred", expected: "error occurred"},
		{name: "empty body", input: "", expected: ""},
		{name: "trailing newline", input: "{\"error\": \"not found\"}\n", expected: `{"error": "not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatErrorBody(strings.NewReader(tt.input))
			if result != tt.expected {
				t.Errorf("formatErrorBody() = %q, want %q", result, tt.expected)
			}
		})
	}
}
