package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/chat"
	"github.com/matsen/paperchat/internal/config"
	"github.com/matsen/paperchat/internal/reference"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"", ExitSuccess},
		{assistant.CodeUnconfigured, ExitUnconfigured},
		{assistant.CodeNotFound, ExitDataError},
		{assistant.CodeExtraction, ExitDataError},
		{assistant.CodeStorage, ExitDataError},
		{assistant.CodeInvalidRequest, ExitError},
		{assistant.CodeFailed, ExitError},
		{"something_else", ExitError},
	}

	for _, tt := range tests {
		if got := exitCodeFor(tt.code); got != tt.want {
			t.Errorf("exitCodeFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"ééééééééééé", 6, "ééé..."}, // counts runes
	}

	for _, tt := range tests {
		if got := truncateString(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9, "  ")
	want := "one two\n  three\n  four"
	if got != want {
		t.Errorf("wrapText() = %q, want %q", got, want)
	}
}

func TestFormatAuthorsShort(t *testing.T) {
	authors := []reference.Author{{Last: "Vaswani"}, {Last: "Shazeer"}, {Last: "Parmar"}, {Last: "Uszkoreit"}}
	if got := formatAuthorsShort(authors, 3); got != "Vaswani, Shazeer, Parmar, et al." {
		t.Errorf("formatAuthorsShort() = %q", got)
	}
	if got := formatAuthorsShort(authors[:2], 3); got != "Vaswani, Shazeer" {
		t.Errorf("formatAuthorsShort() = %q", got)
	}
}

func TestProviderForKey(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderClaude, config.ProviderGemini} {
		key, _ := config.CredentialKey(provider)
		got, ok := providerForKey(key)
		if !ok || got != provider {
			t.Errorf("providerForKey(%q) = %q, %v; want %q", key, got, ok, provider)
		}
	}
	if _, ok := providerForKey("chat_model"); ok {
		t.Error("providerForKey(chat_model) should not match a provider")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	history, err := readHistory(path)
	if err != nil {
		t.Fatalf("readHistory(missing) error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("readHistory(missing) = %v, want empty", history)
	}

	want := []chat.Message{
		{Role: chat.RoleUser, Content: "What is attention?"},
		{Role: chat.RoleAssistant, Content: "A weighting over tokens."},
	}
	if err := writeHistory(path, want); err != nil {
		t.Fatalf("writeHistory() error = %v", err)
	}
	got, err := readHistory(path)
	if err != nil {
		t.Fatalf("readHistory() error = %v", err)
	}
	if len(got) != 2 || got[1].Content != want[1].Content {
		t.Errorf("readHistory() = %v, want %v", got, want)
	}
}

func TestReadHistoryRejectsSystemRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(`[{"role":"system","content":"x"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readHistory(path); err == nil {
		t.Error("readHistory() should reject system messages")
	}
}
