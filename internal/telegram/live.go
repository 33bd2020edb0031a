package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
)

// LiveMessage mirrors a growing model reply into one Telegram message.
// Edits are throttled; Finish always shows the complete text. A LiveMessage
// is not safe for concurrent use.
type LiveMessage struct {
	m       Messenger
	chatID  int64
	header  string
	limiter *rate.Limiter

	messageID int
	text      string
	shown     string
}

func NewLiveMessage(m Messenger, chatID int64, header string, interval time.Duration) *LiveMessage {
	return &LiveMessage{
		m:       m,
		chatID:  chatID,
		header:  header,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Update replaces the text shown so far.
func (l *LiveMessage) Update(ctx context.Context, text string) error {
	l.text = text
	if !l.limiter.Allow() {
		return nil
	}
	return l.show(ctx, preview(l.body()))
}

// Finish shows the final text, spilling into extra messages when it does
// not fit into one.
func (l *LiveMessage) Finish(ctx context.Context) error {
	parts := SplitMessage(l.body(), MaxMessageLen)
	if err := l.show(ctx, parts[0]); err != nil {
		return err
	}
	for _, part := range parts[1:] {
		if _, err := l.m.SendMessage(ctx, &bot.SendMessageParams{ChatID: l.chatID, Text: part}); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// Discard deletes the message if anything was sent. The LiveMessage can be
// reused afterwards.
func (l *LiveMessage) Discard(ctx context.Context) error {
	if l.messageID == 0 {
		return nil
	}
	if _, err := l.m.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: l.chatID, MessageID: l.messageID}); err != nil {
		return fmt.Errorf("delete live message: %w", err)
	}
	l.messageID = 0
	l.shown = ""
	return nil
}

func (l *LiveMessage) Text() string {
	return l.text
}

func (l *LiveMessage) body() string {
	text := strings.TrimSpace(l.text)
	switch {
	case l.header == "":
		if text == "" {
			return "…"
		}
		return text
	case text == "":
		return l.header
	default:
		return l.header + "\n\n" + text
	}
}

func (l *LiveMessage) show(ctx context.Context, body string) error {
	if body == l.shown {
		return nil
	}

	if l.messageID == 0 {
		msg, err := l.m.SendMessage(ctx, &bot.SendMessageParams{ChatID: l.chatID, Text: body})
		if err != nil {
			return fmt.Errorf("send live message: %w", err)
		}
		l.messageID = msg.ID
	} else {
		_, err := l.m.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    l.chatID,
			MessageID: l.messageID,
			Text:      body,
		})
		if err != nil {
			return fmt.Errorf("edit live message: %w", err)
		}
	}
	l.shown = body
	return nil
}

// preview keeps the tail of an oversize body while it is still growing.
func preview(body string) string {
	r := []rune(body)
	if len(r) <= MaxMessageLen {
		return body
	}
	return "…" + string(r[len(r)-MaxMessageLen+1:])
}
