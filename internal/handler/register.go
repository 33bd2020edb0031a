package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/promptforge/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleHelp)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, h.handleHistory)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/improve", bot.MatchTypePrefix, h.handleImprove)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/again", bot.MatchTypePrefix, h.handleAgain)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/finish", bot.MatchTypePrefix, h.handleFinish)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/copy", bot.MatchTypePrefix, h.handleCopy)

	// Workflow callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackImprove, bot.MatchTypeExact, h.handleImprove)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackAgain, bot.MatchTypeExact, h.handleAgain)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackFinish, bot.MatchTypeExact, h.handleFinish)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackCopy, bot.MatchTypeExact, h.handleCopy)

	// History callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackHistory, bot.MatchTypeExact, h.handleHistory)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackHistoryItem, bot.MatchTypePrefix, h.handleHistorySelect)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackHistoryPage, bot.MatchTypePrefix, h.handleHistoryPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNoop, bot.MatchTypeExact, h.handleNoop)
}

// handleNoop acknowledges callbacks of non-interactive buttons such as the
// page indicator.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)
}

func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}
