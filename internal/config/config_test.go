package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "chunk_overlap"},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, "chunk_overlap"},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "chunk_size"},
		{"zero batch", func(c *Config) { c.EmbedBatchSize = 0 }, "embed_batch_size"},
		{"negative delay", func(c *Config) { c.EmbedBatchDelay = -time.Second }, "embed_batch_delay"},
		{"zero top k", func(c *Config) { c.TopK = 0 }, "top_k"},
		{"hot temperature", func(c *Config) { c.Temperature = 3 }, "temperature"},
		{"unknown embedding provider", func(c *Config) { c.EmbeddingProvider = "cohere" }, "embedding_provider"},
		{"unknown chat provider", func(c *Config) { c.ChatProvider = "llama" }, "chat_provider"},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestSetGet(t *testing.T) {
	cfg := Defaults()
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"openai_api_key", " sk-abc ", "sk-abc"},
		{"chat_provider", "claude", "claude"},
		{"chunk_size", "800", "800"},
		{"temperature", "0.2", "0.2"},
		{"embed_batch_delay", "250ms", "250ms"},
	}
	for _, tt := range tests {
		if err := cfg.Set(tt.key, tt.value); err != nil {
			t.Fatalf("Set(%s) = %v", tt.key, err)
		}
		got, err := cfg.Get(tt.key)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestSetRejectsAndKeepsConfig(t *testing.T) {
	cfg := Defaults()
	bad := []struct{ key, value string }{
		{"nope", "1"},
		{"chunk_size", "big"},
		{"chunk_overlap", "1000"},
		{"temperature", "warm"},
		{"embed_batch_delay", "soon"},
		{"embedding_provider", "cohere"},
	}
	for _, b := range bad {
		if err := cfg.Set(b.key, b.value); !errors.Is(err, ErrInvalid) {
			t.Errorf("Set(%s, %s) = %v, want ErrInvalid", b.key, b.value, err)
		}
	}
	if cfg != Defaults() {
		t.Errorf("config changed after rejected sets: %+v", cfg)
	}
	if _, err := cfg.Get("nope"); err == nil {
		t.Error("Get of unknown key should fail")
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.OpenAIAPIKey = "sk-1234567890"
	r := cfg.Redacted()
	if r["openai_api_key"] != "*********7890" {
		t.Errorf("openai_api_key = %q", r["openai_api_key"])
	}
	if r["gemini_api_key"] != "" {
		t.Errorf("empty key should stay empty, got %q", r["gemini_api_key"])
	}
	if r["chat_model"] != "gpt-4o-mini" {
		t.Errorf("chat_model = %q", r["chat_model"])
	}
	if len(r) != len(Keys()) {
		t.Errorf("Redacted has %d keys, Keys has %d", len(r), len(Keys()))
	}
	if Mask("abc") != "***" {
		t.Errorf("Mask(abc) = %q", Mask("abc"))
	}
	if !IsSecret("anthropic_api_key") || IsSecret("chat_model") {
		t.Error("IsSecret mismatch")
	}
}

func TestKeyFor(t *testing.T) {
	cfg := Config{OpenAIAPIKey: "o", AnthropicAPIKey: "a", GeminiAPIKey: "g"}
	for provider, want := range map[string]string{
		ProviderOpenAI: "o", ProviderClaude: "a", ProviderGemini: "g", ProviderOllama: "",
	} {
		if got := cfg.KeyFor(provider); got != want {
			t.Errorf("KeyFor(%s) = %q, want %q", provider, got, want)
		}
	}
}

func TestResolvedDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	cfg := Defaults()
	if got := cfg.ResolvedDataDir(); got != "/custom/data/pchat" {
		t.Errorf("ResolvedDataDir() = %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	cfg.DataDir = "~/papers"
	if got := cfg.ResolvedDataDir(); got != filepath.Join(home, "papers") {
		t.Errorf("ResolvedDataDir() = %q", got)
	}
	if got := DBPath("/d"); got != "/d/pchat.db" {
		t.Errorf("DBPath = %q", got)
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	tests := []struct{ in, want string }{
		{"~", home},
		{"~/x", filepath.Join(home, "x")},
		{"/abs", "/abs"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		if got := ExpandTilde(tt.in); got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
