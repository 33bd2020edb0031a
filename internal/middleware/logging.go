package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs each update with the session mode it
// left behind.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			kind, intent := describe(update)

			next(ctx, b, update)

			attrs := []any{
				"type", kind,
				"intent", intent,
				"chat_id", UpdateChatID(update),
				"duration", time.Since(start),
			}
			if m := GetSession(ctx); m != nil {
				attrs = append(attrs, "mode", m.Snapshot().Mode.String())
			}
			slog.Debug("update processed", attrs...)
		}
	}
}

// describe names the update type and, for commands and buttons, what was
// asked for. Free text is never logged.
func describe(update *models.Update) (kind, intent string) {
	switch {
	case update.Message != nil:
		text := update.Message.Text
		if strings.HasPrefix(text, "/") {
			if i := strings.IndexAny(text, " @"); i > 0 {
				text = text[:i]
			}
			return "command", text
		}
		return "message", "text"
	case update.CallbackQuery != nil:
		return "callback_query", update.CallbackQuery.Data
	}
	return "unknown", ""
}
