package llm

import (
	"context"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a single-turn prompt and returns the model's raw text.
	// An empty Text with a nil error means the model answered with nothing.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one completion
type CompletionRequest struct {
	// Prompt is sent as the only user message
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length; 0 leaves it to the provider
	MaxTokens int
}

// CompletionResponse contains the model output
type CompletionResponse struct {
	// Text is the untrimmed completion text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption when the provider reports it
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic; local OpenAI-compatible servers accept none
	APIKey string

	// BaseURL for custom endpoints (LM Studio, llama.cpp, Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Temperature for sampling
	Temperature float32

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig targets a local OpenAI-compatible server
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "local-llama",
		BaseURL:     "http://127.0.0.1:1234/v1",
		Timeout:     30,
		Temperature: 0.3,
	}
}
