// Package config handles pchat configuration and data directory layout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config is the user configuration stored in ~/.config/pchat/config.yml.
type Config struct {
	OpenAIAPIKey    string `yaml:"openai_api_key,omitempty"`
	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`
	GeminiAPIKey    string `yaml:"gemini_api_key,omitempty"`

	EmbeddingProvider string `yaml:"embedding_provider,omitempty"` // openai, ollama, gemini
	EmbeddingModel    string `yaml:"embedding_model,omitempty"`
	OllamaURL         string `yaml:"ollama_url,omitempty"`

	ChatProvider string  `yaml:"chat_provider,omitempty"` // openai, claude, gemini
	ChatModel    string  `yaml:"chat_model,omitempty"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`

	ChunkSize       int           `yaml:"chunk_size"`
	ChunkOverlap    int           `yaml:"chunk_overlap"`
	EmbedBatchSize  int           `yaml:"embed_batch_size"`
	EmbedBatchDelay time.Duration `yaml:"embed_batch_delay"`
	TopK            int           `yaml:"top_k"`
	FastModePages   int           `yaml:"fast_mode_pages"`

	DataDir  string `yaml:"data_dir,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

const (
	// AppDir is the directory name under XDG_CONFIG_HOME and XDG_DATA_HOME.
	AppDir = "pchat"
	// DBFile is the SQLite database file name inside the data directory.
	DBFile = "pchat.db"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

var (
	validEmbeddingProviders = []string{ProviderOpenAI, ProviderOllama, ProviderGemini}
	validChatProviders      = []string{ProviderOpenAI, ProviderClaude, ProviderGemini}
	validLogLevels          = []string{"trace", "debug", "info", "warn", "error"}
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		OllamaURL:         "http://localhost:11434",
		ChatProvider:      ProviderOpenAI,
		ChatModel:         "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         1000,
		ChunkSize:         1000,
		ChunkOverlap:      200,
		EmbedBatchSize:    10,
		EmbedBatchDelay:   100 * time.Millisecond,
		TopK:              3,
		FastModePages:     10,
		LogLevel:          "info",
	}
}

// ErrInvalid is returned by Validate and Set for unusable values.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var problems []string
	if c.ChunkSize <= 0 {
		problems = append(problems, "chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "chunk_overlap must be at least 0 and less than chunk_size")
	}
	if c.EmbedBatchSize <= 0 {
		problems = append(problems, "embed_batch_size must be positive")
	}
	if c.EmbedBatchDelay < 0 {
		problems = append(problems, "embed_batch_delay must not be negative")
	}
	if c.TopK <= 0 {
		problems = append(problems, "top_k must be positive")
	}
	if c.FastModePages <= 0 {
		problems = append(problems, "fast_mode_pages must be positive")
	}
	if c.MaxTokens <= 0 {
		problems = append(problems, "max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		problems = append(problems, "temperature must be between 0 and 2")
	}
	if !contains(validEmbeddingProviders, c.EmbeddingProvider) {
		problems = append(problems, fmt.Sprintf("embedding_provider must be one of %s", strings.Join(validEmbeddingProviders, ", ")))
	}
	if !contains(validChatProviders, c.ChatProvider) {
		problems = append(problems, fmt.Sprintf("chat_provider must be one of %s", strings.Join(validChatProviders, ", ")))
	}
	if c.LogLevel != "" && !contains(validLogLevels, c.LogLevel) {
		problems = append(problems, fmt.Sprintf("log_level must be one of %s", strings.Join(validLogLevels, ", ")))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// field binds a config key to accessors on Config.
type field struct {
	get    func(*Config) string
	set    func(*Config, string) error
	secret bool
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func secretField(p func(*Config) *string) field {
	f := stringField(p)
	f.secret = true
	return f
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", ErrInvalid, v)
			}
			*p(c) = n
			return nil
		},
	}
}

var fields = map[string]field{
	"openai_api_key":     secretField(func(c *Config) *string { return &c.OpenAIAPIKey }),
	"anthropic_api_key":  secretField(func(c *Config) *string { return &c.AnthropicAPIKey }),
	"gemini_api_key":     secretField(func(c *Config) *string { return &c.GeminiAPIKey }),
	"embedding_provider": stringField(func(c *Config) *string { return &c.EmbeddingProvider }),
	"embedding_model":    stringField(func(c *Config) *string { return &c.EmbeddingModel }),
	"ollama_url":         stringField(func(c *Config) *string { return &c.OllamaURL }),
	"chat_provider":      stringField(func(c *Config) *string { return &c.ChatProvider }),
	"chat_model":         stringField(func(c *Config) *string { return &c.ChatModel }),
	"data_dir":           stringField(func(c *Config) *string { return &c.DataDir }),
	"log_level":          stringField(func(c *Config) *string { return &c.LogLevel }),
	"max_tokens":         intField(func(c *Config) *int { return &c.MaxTokens }),
	"chunk_size":         intField(func(c *Config) *int { return &c.ChunkSize }),
	"chunk_overlap":      intField(func(c *Config) *int { return &c.ChunkOverlap }),
	"embed_batch_size":   intField(func(c *Config) *int { return &c.EmbedBatchSize }),
	"top_k":              intField(func(c *Config) *int { return &c.TopK }),
	"fast_mode_pages":    intField(func(c *Config) *int { return &c.FastModePages }),
	"temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Temperature, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", ErrInvalid, v)
			}
			c.Temperature = f
			return nil
		},
	},
	"embed_batch_delay": {
		get: func(c *Config) string { return c.EmbedBatchDelay.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a duration", ErrInvalid, v)
			}
			c.EmbedBatchDelay = d
			return nil
		},
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return fields[key].secret
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return f.get(c), nil
}

// Set assigns key from its string form. The result is validated; on failure
// the config is left unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	next := *c
	if err := f.set(&next, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Redacted returns every key with credentials masked, for display.
func (c *Config) Redacted() map[string]string {
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		v := f.get(c)
		if f.secret && v != "" {
			v = Mask(v)
		}
		out[k] = v
	}
	return out
}

// Mask hides all but the last four characters of a credential.
func Mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// KeyFor returns the credential configured for a provider.
func (c Config) KeyFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderClaude:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	}
	return ""
}

// DefaultDataDir returns the data directory used when data_dir is unset.
// Respects XDG_DATA_HOME, defaults to ~/.local/share/pchat.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppDir)
}

// ResolvedDataDir returns the configured data directory, tilde-expanded, or
// the default.
func (c Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return ExpandTilde(c.DataDir)
	}
	return DefaultDataDir()
}

// DBPath returns the path to the SQLite database inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
