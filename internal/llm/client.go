package llm

import (
	"context"
	"fmt"

	"github.com/lazypower/rapport/internal/config"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
	// Truncated is set when the provider stopped at its output token limit.
	Truncated bool
}

// Schema names a JSON schema that providers with structured-output support
// use to constrain the completion.
type Schema struct {
	Name   string
	Schema map[string]any
}

// Option configures NewClient.
type Option func(*options)

type options struct {
	schema *Schema
}

// WithSchema asks providers that support it to constrain output to schema.
func WithSchema(name string, schema map[string]any) Option {
	return func(o *options) {
		o.schema = &Schema{Name: name, Schema: schema}
	}
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig, opts ...Option) (Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model, o.schema), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAI(cfg.OpenAIKey, model, o.schema), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model, o.schema), nil
	case "mock":
		// Offline development: every text is neutral.
		return &MockClient{Response: &Response{
			Content:  `{"sentiment":"neutral","confidence":0.5,"emotions":[],"keyPhrases":[]}`,
			Provider: "mock",
		}}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
