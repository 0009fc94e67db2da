package main

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigAPIKeyFallback(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	var cfg Config
	require.NoError(t, env.Parse(&cfg))
	assert.Equal(t, "gemini-key", cfg.apiKey())

	cfg.LLMProvider = "openai"
	assert.Equal(t, "openai-key", cfg.apiKey())

	cfg.LLMAPIKey = "explicit"
	assert.Equal(t, "explicit", cfg.apiKey())
}
