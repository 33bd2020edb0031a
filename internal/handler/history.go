package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/middleware"
	"github.com/set-night/promptforge/internal/session"
	tg "github.com/set-night/promptforge/internal/telegram"
)

// handleHistory lists prompt versions with a button per version.
func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)

	chatID := middleware.UpdateChatID(update)
	m := middleware.GetSession(ctx)
	if chatID == 0 || m == nil {
		return
	}

	s := m.Current(ctx)
	if len(s.History) == 0 {
		tg.SendLongMessage(ctx, b, chatID, "No prompts yet. Send me your idea first.", nil)
		return
	}

	keyboard := tg.HistoryKeyboard(s.History, s.ActiveID, 0, config.HistoryPerPage)
	if err := tg.SendCard(ctx, b, chatID, historyCard(s, 0), historyPlain(s), keyboard); err != nil {
		slog.Error("send history", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleHistoryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)

	cq := update.CallbackQuery
	m := middleware.GetSession(ctx)
	if cq == nil || cq.Message.Message == nil || m == nil {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(cq.Data, tg.CallbackHistoryPage))
	if err != nil {
		return
	}

	s := m.Snapshot()
	html, err := tg.Render(ctx, historyCard(s, page))
	if err != nil {
		slog.Error("render history", "error", err)
		return
	}
	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      cq.Message.Message.Chat.ID,
		MessageID:   cq.Message.Message.ID,
		Text:        html,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: tg.HistoryKeyboard(s.History, s.ActiveID, page, config.HistoryPerPage),
	})
	if err != nil {
		slog.Warn("edit history page", "error", err)
	}
}

// handleHistorySelect makes the chosen version active and analyzes it.
func (h *Handler) handleHistorySelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)

	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(cq.Data, tg.CallbackHistoryItem))
	if err != nil {
		return
	}

	h.runIntent(ctx, b, update, func(m *session.Machine, ctx context.Context) error {
		return m.SelectHistory(ctx, id)
	}, true)
}

// handleCopy sends the active prompt alone so it can be copied in one tap.
func (h *Handler) handleCopy(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)

	chatID := middleware.UpdateChatID(update)
	m := middleware.GetSession(ctx)
	if chatID == 0 || m == nil {
		return
	}

	active, ok := m.Current(ctx).ActivePrompt()
	if !ok {
		tg.SendLongMessage(ctx, b, chatID, "There is no active prompt to copy.", nil)
		return
	}
	if err := tg.SendCard(ctx, b, chatID, tg.CopyCard(active.Content), active.Content, nil); err != nil {
		slog.Error("send copy", "error", err, "chat_id", chatID)
	}
}

func historyCard(s session.State, page int) templ.Component {
	start := min(max(page, 0)*config.HistoryPerPage, len(s.History))
	end := min(start+config.HistoryPerPage, len(s.History))
	return tg.HistoryList(s.History[start:end], s.ActiveID)
}

func historyPlain(s session.State) string {
	var b strings.Builder
	for _, v := range s.History {
		b.WriteString("#" + strconv.Itoa(v.ID) + " " + string(v.Kind) + ": " + tg.Preview(v.Content, 60) + "\n")
	}
	return b.String()
}
