package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Gateway
	LLMProvider      string `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMAPIKey        string `env:"LLM_API_KEY,required,notEmpty"`
	LLMModel         string `env:"LLM_MODEL"`
	LLMBaseURL       string `env:"LLM_BASE_URL"`
	LLMMaxTokens     int64  `env:"LLM_MAX_TOKENS" envDefault:"8192"`
	StructuredOutput bool   `env:"LLM_STRUCTURED_OUTPUT" envDefault:"true"`
	WebSearch        bool   `env:"LLM_WEB_SEARCH" envDefault:"false"`

	// Telegram
	BotToken           string `env:"BOT_TOKEN"`
	DropPendingUpdates bool   `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Storage
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://promptforge.db"`

	// Behavior
	PromptsFile        string        `env:"PROMPTS_FILE"`
	SessionCacheSize   int           `env:"SESSION_CACHE_SIZE" envDefault:"1024"`
	StreamEditInterval time.Duration `env:"STREAM_EDIT_INTERVAL" envDefault:"1500ms"`

	// Logging
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int    `env:"LOG_TOPIC_ERROR"`
	LogTopicSession   int    `env:"LOG_TOPIC_SESSION"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if _, ok := DefaultModels[cfg.LLMProvider]; !ok {
		return nil, fmt.Errorf("parse config: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultModels[cfg.LLMProvider]
	}
	if cfg.SessionCacheSize <= 0 {
		cfg.SessionCacheSize = DefaultSessionCacheSize
	}
	return cfg, nil
}

// Level maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
