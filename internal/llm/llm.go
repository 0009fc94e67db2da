package llm

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderGemini          = "gemini"
	ProviderOpenAI          = "openai"
	ProviderLangchainOpenAI = "langchain-openai"
)

// Generator produces a single, non-streamed completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider and model, e.g. "gemini/gemini-2.0-flash".
	Name() string
}

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

func New(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model must be specified")
	}

	switch cfg.Provider {
	case ProviderGemini:
		return NewGemini(ctx, cfg.Model, cfg.APIKey, cfg.Timeout)
	case ProviderOpenAI:
		return NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Timeout), nil
	case ProviderLangchainOpenAI:
		return NewLangchainOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported llm provider '%s'", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
