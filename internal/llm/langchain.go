package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Langchain adapts any langchaingo model to a Generator.
type Langchain struct {
	model   llms.Model
	name    string
	timeout time.Duration
}

func NewLangchain(model llms.Model, name string, timeout time.Duration) *Langchain {
	return &Langchain{model: model, name: name, timeout: timeout}
}

func NewGemini(ctx context.Context, model, apiKey string, timeout time.Duration) (*Langchain, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key must be specified")
	}

	client, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}

	return NewLangchain(client, ProviderGemini+"/"+model, timeout), nil
}

func NewLangchainOpenAI(model, apiKey, baseURL string, timeout time.Duration) (*Langchain, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create OpenAI client: %w", err)
	}

	return NewLangchain(client, ProviderLangchainOpenAI+"/"+model, timeout), nil
}

func (l *Langchain) Name() string {
	return l.name
}

func (l *Langchain) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	text, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt)
	if err != nil {
		slog.Error("error calling llm", "llm", l.name, "error", err)
		return "", fmt.Errorf("%s generation failed: %w", l.name, err)
	}

	return text, nil
}
