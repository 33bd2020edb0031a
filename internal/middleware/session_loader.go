package middleware

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/session"
)

type ctxKey string

const SessionKey ctxKey = "session"

// GetSession extracts the chat's session machine from context.
func GetSession(ctx context.Context) *session.Machine {
	m, ok := ctx.Value(SessionKey).(*session.Machine)
	if !ok {
		return nil
	}
	return m
}

// WithSession stores m in ctx.
func WithSession(ctx context.Context, m *session.Machine) context.Context {
	return context.WithValue(ctx, SessionKey, m)
}

// ChatScope is the session scope of a Telegram chat.
func ChatScope(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// UpdateChatID returns the chat an update belongs to, or 0.
func UpdateChatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	default:
		return 0
	}
}

// SessionLoader returns middleware that loads the chat's session into context.
func SessionLoader(sessions *session.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if chatID := UpdateChatID(update); chatID != 0 {
				ctx = WithSession(ctx, sessions.Get(ctx, ChatScope(chatID)))
			}
			next(ctx, b, update)
		}
	}
}
