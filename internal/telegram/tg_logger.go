package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/llm"
)

// TelegramLogger mirrors operational events into topics of an ops chat.
type TelegramLogger struct {
	m   Messenger
	cfg *config.Config
}

func NewTelegramLogger(m Messenger, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{m: m, cfg: cfg}
}

type LogType string

const (
	LogTypeError   LogType = "error"
	LogTypeSession LogType = "session"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.m.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

// LogFailure reports a failed model operation of a session.
func (l *TelegramLogger) LogFailure(scope, op string, err error) {
	msg := fmt.Sprintf("❌ *Model call failed*\n\n*Session:* `%s`\n*Operation:* %s\n*Kind:* %s\n*Error:* `%s`",
		scope, op, llm.Classify(err), err.Error())
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogSessionReset(scope string) {
	msg := fmt.Sprintf("🧹 *Session reset*\n\n*Session:* `%s`\n*Time:* %s",
		scope, time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeSession, msg)
}

func (l *TelegramLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeSession:
		return l.cfg.LogTopicSession
	default:
		return 0
	}
}
