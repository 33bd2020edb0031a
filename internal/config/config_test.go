package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLMModel)
	assert.True(t, cfg.StructuredOutput)
	assert.Equal(t, "sqlite://promptforge.db", cfg.DatabaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.StreamEditInterval)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadProviderOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("LLM_PROVIDER", " Anthropic ")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, DefaultModels["anthropic"], cfg.LLMModel)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("LLM_PROVIDER", "bard")

	_, err := Load()
	require.Error(t, err)
}
