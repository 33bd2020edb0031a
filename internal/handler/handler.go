package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/session"
	"github.com/set-night/promptforge/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	sessions    *session.Registry
	tgLogger    *telegram.TelegramLogger
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Sessions    *session.Registry
	TgLogger    *telegram.TelegramLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		sessions:    deps.Sessions,
		tgLogger:    deps.TgLogger,
		botUsername: deps.BotUsername,
	}
}
