package config

import "time"

const (
	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Model cache duration
	ModelCacheDuration = 1 * time.Hour

	// Sessions kept in memory before the least recently used is dropped
	DefaultSessionCacheSize = 1024

	// History versions per page
	HistoryPerPage = 8

	// Typing indicator refresh
	TypingInterval = 4 * time.Second

	// Persisted state keys
	KeyPromptHistory  = "promptHistory"
	KeyActivePromptID = "activePromptId"
)

// DefaultModels per LLM_PROVIDER.
var DefaultModels = map[string]string{
	"gemini":     "gemini-2.5-flash",
	"openrouter": "google/gemini-2.5-flash",
	"openai":     "gpt-4.1-mini",
	"anthropic":  "claude-sonnet-4-5-20250929",
}
