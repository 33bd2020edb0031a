package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/middleware"
	"github.com/set-night/promptforge/internal/session"
	tg "github.com/set-night/promptforge/internal/telegram"
)

const welcomeText = "👋 *PromptForge*\n\n" +
	"Send me a rough idea for a prompt and I will turn it into a detailed one, " +
	"critique it and ask what to sharpen.\n\n" +
	"Reply to refine it, or run /improve for automatic improvement cycles."

const helpText = "*Commands*\n\n" +
	"/new - start over with a new idea\n" +
	"/improve - run an evaluate and refine cycle\n" +
	"/again - run another cycle\n" +
	"/finish - leave the improvement loop\n" +
	"/history - list and switch prompt versions\n" +
	"/copy - send the active prompt as a copyable block\n" +
	"/help - this message\n\n" +
	"Any other text is your idea (before the first prompt) or a refinement request (after it)."

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	m := middleware.GetSession(ctx)
	if m == nil {
		return
	}

	s := m.Current(ctx)
	if s.Mode == session.ModeInitial {
		tg.SendLongMessage(ctx, b, chatID, welcomeText, nil)
		return
	}

	tg.SendLongMessage(ctx, b, chatID, "👋 Welcome back! Here is where we left off.", nil)
	h.presentActive(ctx, b, chatID, s, false)
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	tg.SendLongMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// handleNew resets the chat's session.
func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	m := middleware.GetSession(ctx)
	if m == nil {
		return
	}

	m.Reset(ctx)
	tg.SendLongMessage(ctx, b, update.Message.Chat.ID, "🧹 Started over. Send me your next prompt idea.", nil)
}
