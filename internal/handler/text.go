package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/middleware"
	"github.com/set-night/promptforge/internal/session"
	tg "github.com/set-night/promptforge/internal/telegram"
)

// HandleDefault receives every update no registered handler matched.
// Plain text is an idea before the first prompt and a refinement request
// after it.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID

	if strings.HasPrefix(msg.Text, "/") {
		tg.SendLongMessage(ctx, b, chatID, "Unknown command. See /help.", nil)
		return
	}

	m := middleware.GetSession(ctx)
	if m == nil {
		return
	}

	switch s := m.Current(ctx); s.Mode {
	case session.ModeInitial:
		h.submit(ctx, b, chatID, m, msg.Text)
	case session.ModeRefining:
		h.chat(ctx, b, chatID, m, msg.Text)
	default:
		tg.SendLongMessage(ctx, b, chatID,
			"🔁 An improvement loop is running. Use /again for another cycle or /finish to go back to refining.",
			tg.ImprovingKeyboard())
	}
}

func (h *Handler) submit(ctx context.Context, b *bot.Bot, chatID int64, m *session.Machine, idea string) {
	err := h.run(ctx, b, chatID, m, func(ctx context.Context) error {
		return m.Submit(ctx, idea)
	})
	if err != nil {
		return
	}
	h.presentActive(ctx, b, chatID, m.Snapshot(), true)
}

func (h *Handler) chat(ctx context.Context, b *bot.Bot, chatID int64, m *session.Machine, text string) {
	before := m.Snapshot().ActiveID
	err := h.run(ctx, b, chatID, m, func(ctx context.Context) error {
		return m.SendChatMessage(ctx, text)
	})
	if s := m.Snapshot(); s.ActiveID != before && s.ActiveID != 0 {
		h.presentActive(ctx, b, chatID, s, err == nil)
	}
}
