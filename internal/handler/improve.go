package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/middleware"
	"github.com/set-night/promptforge/internal/session"
)

func (h *Handler) handleImprove(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.runIntent(ctx, b, update, (*session.Machine).StartImprovement, false)
}

func (h *Handler) handleAgain(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.runIntent(ctx, b, update, (*session.Machine).RunImprovementCycle, false)
}

func (h *Handler) handleFinish(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.runIntent(ctx, b, update, (*session.Machine).FinishImprovement, true)
}

// runIntent runs a parameterless intent triggered by a command or a button
// and presents the active prompt afterwards.
func (h *Handler) runIntent(ctx context.Context, b *bot.Bot, update *models.Update, intent func(*session.Machine, context.Context) error, withMessage bool) {
	answerCallback(ctx, b, update)

	chatID := middleware.UpdateChatID(update)
	m := middleware.GetSession(ctx)
	if chatID == 0 || m == nil {
		return
	}

	err := h.run(ctx, b, chatID, m, func(ctx context.Context) error {
		return intent(m, ctx)
	})
	if err != nil {
		return
	}
	h.presentActive(ctx, b, chatID, m.Snapshot(), withMessage)
}
