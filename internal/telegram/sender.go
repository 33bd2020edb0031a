package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const MaxMessageLen = 4096

// Messenger is the part of *bot.Bot the presentation layer talks to.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// SendLongMessage sends a potentially long message, splitting it into parts if needed.
// Falls back to plain text if Markdown parsing fails.
func SendLongMessage(ctx context.Context, m Messenger, chatID int64, text string, markup models.ReplyMarkup) error {
	text = FixMarkdown(text)
	parts := SplitMessage(text, MaxMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		if _, err := m.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := m.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// SendCard renders c as Telegram HTML. When the card does not fit in one
// message or Telegram rejects the markup, plain is sent instead, split as
// needed.
func SendCard(ctx context.Context, m Messenger, chatID int64, c templ.Component, plain string, markup models.ReplyMarkup) error {
	html, err := Render(ctx, c)
	if err != nil {
		return fmt.Errorf("render card: %w", err)
	}

	if len([]rune(html)) <= MaxMessageLen {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      html,
			ParseMode: models.ParseModeHTML,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		_, err := m.SendMessage(ctx, params)
		if err == nil {
			return nil
		}
		slog.Warn("html send failed, falling back to plain text", "error", err)
	}

	parts := SplitMessage(plain, MaxMessageLen)
	for i, part := range parts {
		params := &bot.SendMessageParams{ChatID: chatID, Text: part}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}
		if _, err := m.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// Render writes c into a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// StartTyping sends "typing..." every interval until the returned cancel
// function is called.
func StartTyping(ctx context.Context, m Messenger, chatID int64, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			m.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID: chatID,
				Action: models.ChatActionTyping,
			})
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}
