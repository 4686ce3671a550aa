package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "r"},
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 2 || rest[0].Role != RoleUser || rest[1].Role != RoleAssistant {
		t.Errorf("rest = %+v", rest)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		wantErr  bool
	}{
		{"", "gpt-4o-mini", false},
		{ProviderOpenAI, "gpt-4o-mini", false},
		{ProviderClaude, DefaultClaudeModel, false},
		{ProviderGemini, DefaultGeminiModel, false},
		{"llama", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			g, err := New(Settings{Provider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if g.ModelName() != tt.model {
				t.Errorf("ModelName = %q, want %q", g.ModelName(), tt.model)
			}
			if IsConfigured(g) {
				t.Error("generator without key reports configured")
			}
		})
	}
}

func TestUnconfiguredGenerators(t *testing.T) {
	gens := []Generator{
		NewOpenAIGenerator(),
		NewClaudeGenerator("", ""),
		NewGeminiGenerator("", ""),
	}
	for _, g := range gens {
		_, err := g.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
		if !IsUnconfigured(err) {
			t.Errorf("%s: err = %v, want ErrUnconfigured", g.ModelName(), err)
		}
	}
	if IsConfigured(nil) {
		t.Error("nil generator reports configured")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
		MaxTokens   int       `json:"max_tokens"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"It is about graphs."}}]}`))
	}))
	defer server.Close()

	g := NewOpenAIGenerator(WithOpenAIKey("sk-test"), WithOpenAIBaseURL(server.URL), WithOpenAIMaxRetries(0))
	reply, err := g.Generate(context.Background(), Request{
		Messages:    []Message{{Role: RoleSystem, Content: "ctx"}, {Role: RoleUser, Content: "what?"}},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "It is about graphs." {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != DefaultOpenAIModel || got.MaxTokens != 1000 || got.Temperature != 0.7 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOpenAIGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		isUnset bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, true},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, false},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, false},
		{"no choices", http.StatusOK, `{"choices":[]}`, false},
		{"bad json", http.StatusOK, `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g := NewOpenAIGenerator(WithOpenAIKey("k"), WithOpenAIBaseURL(server.URL), WithOpenAIMaxRetries(0))
			_, err := g.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}})
			if err == nil {
				t.Fatal("expected error")
			}
			if IsUnconfigured(err) != tt.isUnset {
				t.Errorf("IsUnconfigured = %v, want %v (err %v)", IsUnconfigured(err), tt.isUnset, err)
			}
			if !tt.isUnset && !errors.Is(err, ErrGeneration) {
				t.Errorf("err = %v, want ErrGeneration", err)
			}
		})
	}
}

func TestClaudeGenerate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Short answer."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	g := NewClaudeGenerator("sk-ant", "", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	reply, err := g.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "paper context"},
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "earlier reply"},
			{Role: RoleUser, Content: "second"},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "Short answer." {
		t.Errorf("reply = %q", reply)
	}
	if msgs, ok := body["messages"].([]any); !ok || len(msgs) != 3 {
		t.Errorf("messages = %v", body["messages"])
	}
	if body["system"] == nil {
		t.Error("system prompt not sent")
	}
	if body["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
}

func TestParseKeywords(t *testing.T) {
	got := ParseKeywords(" graphs, phylogenetics ,, , Bayesian inference")
	want := []string{"graphs", "phylogenetics", "Bayesian inference"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if ParseKeywords("") != nil {
		t.Error("empty reply should give no keywords")
	}
}
