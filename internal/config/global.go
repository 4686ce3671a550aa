package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the config file name under the XDG config directory.
const ConfigFile = "config.yml"

// Environment variables that override file values.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvDataDir      = "PCHAT_DATA_DIR"
	EnvLogLevel     = "PCHAT_LOG_LEVEL"
)

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/pchat/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppDir, ConfigFile)
}

// Load reads the config file at path over Defaults.
// A missing file yields the defaults, not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed. The file holds
// credentials so it is written owner-only.
func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("no config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment. Variables already set are not overwritten, and a missing file
// is ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("loading %s: %w", strings.Join(present, ", "), err)
	}
	return nil
}

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.OpenAIAPIKey, EnvOpenAIKey)
	set(&c.AnthropicAPIKey, EnvAnthropicKey)
	set(&c.GeminiAPIKey, EnvGeminiKey)
	set(&c.DataDir, EnvDataDir)
	set(&c.LogLevel, EnvLogLevel)
}

// LoadAll loads the config file, applies environment overrides and
// validates the result.
func LoadAll() (Config, error) {
	cfg, err := Load(Path())
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type credential struct {
	label string
	key   string
	env   string
}

var credentials = map[string]credential{
	ProviderOpenAI: {"OpenAI", "openai_api_key", EnvOpenAIKey},
	ProviderClaude: {"Anthropic", "anthropic_api_key", EnvAnthropicKey},
	ProviderGemini: {"Gemini", "gemini_api_key", EnvGeminiKey},
}

// CredentialKey returns the config key holding a provider's credential.
func CredentialKey(provider string) (string, bool) {
	c, ok := credentials[provider]
	return c.key, ok
}

// UnconfiguredMessage tells the user how to supply a missing credential.
func UnconfiguredMessage(provider string) string {
	c, ok := credentials[provider]
	if !ok {
		return fmt.Sprintf("%s provider not configured. Run 'pchat config set <key> <value>'.", provider)
	}
	return fmt.Sprintf("%s API key not configured. Run 'pchat config set %s <value>' or set %s.", c.label, c.key, c.env)
}
