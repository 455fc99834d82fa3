package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Missing API key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Missing version header")
		}

		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "claude-3-5-haiku-20241022" {
			t.Errorf("Expected default model, got %s", req.Model)
		}
		if req.MaxTokens != 1000 {
			t.Errorf("Expected default max tokens, got %d", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "{\"verdict\":"},
				{"type": "text", "text": "\"MIXED\"}"}
			],
			"model": "claude-3-5-haiku-20241022",
			"usage": {"input_tokens": 20, "output_tokens": 7}
		}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "local-llama"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "check"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"verdict":"MIXED"}` {
		t.Errorf("Expected joined text blocks, got %q", resp.Text)
	}
	if resp.TokensUsed != 27 {
		t.Errorf("Expected 27 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "check"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if got := err.Error(); got != "Anthropic API error: API error (401): authentication_error - invalid x-api-key" {
		t.Errorf("Unexpected error: %s", got)
	}
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected provider with bad key to be unavailable")
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
