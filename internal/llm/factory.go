package llm

import (
	"context"
	"fmt"

	"github.com/set-night/promptforge/internal/config"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
)

// New builds the gateway selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config) (Gateway, error) {
	switch cfg.LLMProvider {
	case ProviderGemini:
		return NewGemini(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	case ProviderOpenRouter:
		return NewOpenRouter(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMMaxTokens), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMMaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLMProvider)
	}
}
