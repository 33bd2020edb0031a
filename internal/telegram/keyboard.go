package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/domain"
)

// Callback data understood by the handler.
const (
	CallbackImprove     = "improve"
	CallbackAgain       = "again"
	CallbackFinish      = "finish"
	CallbackCopy        = "copy"
	CallbackHistory     = "history"
	CallbackHistoryItem = "hist_"
	CallbackHistoryPage = "histpage_"
	CallbackNoop        = "cur"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PaginationRow creates a pagination row with prev/next buttons.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(
		fmt.Sprintf("%d/%d", currentPage+1, totalPages),
		CallbackNoop,
	))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s%d", callbackPrefix, currentPage+1)))
	}

	return row
}

// RefiningKeyboard is attached to analyses while refining.
func RefiningKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		ButtonRow(InlineButton("🚀 Improve 10x", CallbackImprove)),
		ButtonRow(
			InlineButton("📋 Copy", CallbackCopy),
			InlineButton("🕘 History", CallbackHistory),
		),
	)
}

// ImprovingKeyboard is attached to the result of an improvement cycle.
func ImprovingKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		ButtonRow(
			InlineButton("🔁 Another cycle", CallbackAgain),
			InlineButton("✅ Finish", CallbackFinish),
		),
		ButtonRow(
			InlineButton("📋 Copy", CallbackCopy),
			InlineButton("🕘 History", CallbackHistory),
		),
	)
}

// HistoryKeyboard offers one button per version on the given page.
func HistoryKeyboard(history []domain.PromptVersion, activeID, page, perPage int) *models.InlineKeyboardMarkup {
	if perPage <= 0 {
		perPage = len(history)
	}
	total := (len(history) + perPage - 1) / perPage
	if total == 0 {
		return InlineKeyboard()
	}
	page = max(0, min(page, total-1))

	start := page * perPage
	end := min(start+perPage, len(history))

	var rows [][]models.InlineKeyboardButton
	for _, v := range history[start:end] {
		label := fmt.Sprintf("#%d %s", v.ID, v.Kind)
		if v.ID == activeID {
			label = "• " + label
		}
		rows = append(rows, ButtonRow(InlineButton(label, fmt.Sprintf("%s%d", CallbackHistoryItem, v.ID))))
	}
	if total > 1 {
		rows = append(rows, PaginationRow(page, total, CallbackHistoryPage))
	}
	return InlineKeyboard(rows...)
}
