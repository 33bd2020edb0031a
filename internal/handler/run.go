package handler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/domain"
	"github.com/set-night/promptforge/internal/extract"
	"github.com/set-night/promptforge/internal/session"
	tg "github.com/set-night/promptforge/internal/telegram"
)

// run executes one session intent while mirroring streamed text into live
// messages. Failures are reported to the chat; the error is returned so the
// caller can skip presenting a result.
func (h *Handler) run(ctx context.Context, b *bot.Bot, chatID int64, m *session.Machine, op func(context.Context) error) error {
	stopTyping := tg.StartTyping(ctx, b, chatID, config.TypingInterval)
	defer stopTyping()

	mirror := newStreamMirror(ctx, b, chatID, m.Snapshot(), h.cfg.StreamEditInterval)
	unsubscribe := m.Subscribe(mirror.observe)
	err := op(ctx)
	unsubscribe()
	mirror.finish()

	if err != nil {
		h.reportError(ctx, b, chatID, m, err)
	}
	return err
}

func (h *Handler) reportError(ctx context.Context, b *bot.Bot, chatID int64, m *session.Machine, err error) {
	var text string
	switch {
	case errors.Is(err, domain.ErrSessionReset):
		return
	case errors.Is(err, domain.ErrBusy):
		text = "⏳ Please wait for the current request to finish."
	case errors.Is(err, domain.ErrEmptyPrompt):
		text = "✏️ Send me some text first."
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNoActivePrompt):
		text = modeHint(m.Snapshot().Mode)
	case errors.Is(err, domain.ErrPromptNotFound):
		text = "That version is no longer in the history."
	default:
		msg := m.Snapshot().LastError
		if msg == "" {
			msg = err.Error()
		}
		if serr := tg.SendCard(ctx, b, chatID, tg.ErrorBanner(msg), "⚠️ "+msg, nil); serr != nil {
			slog.Error("send error banner", "error", serr, "chat_id", chatID)
		}
		return
	}
	tg.SendLongMessage(ctx, b, chatID, text, nil)
}

func modeHint(mode session.Mode) string {
	switch mode {
	case session.ModeInitial:
		return "There is no prompt yet. Send me your idea first."
	case session.ModeImproving:
		return "An improvement loop is running. Use /again or /finish."
	default:
		return "Start the improvement loop with /improve first."
	}
}

// presentActive shows the active version and, when withMessage is set, the
// latest model message with the keyboard for the current mode.
func (h *Handler) presentActive(ctx context.Context, b *bot.Bot, chatID int64, s session.State, withMessage bool) {
	active, ok := s.ActivePrompt()
	if !ok {
		return
	}

	keyboard := tg.RefiningKeyboard()
	if s.Mode == session.ModeImproving {
		keyboard = tg.ImprovingKeyboard()
	}

	var last *domain.ChatMessage
	if n := len(s.Chat); withMessage && n > 0 && s.Chat[n-1].Role == domain.RoleModel {
		last = &s.Chat[n-1]
	}

	promptMarkup := keyboard
	if last != nil {
		promptMarkup = nil
	}
	if err := tg.SendCard(ctx, b, chatID, tg.PromptCard(active, true), active.Content, markup(promptMarkup)); err != nil {
		slog.Error("send prompt card", "error", err, "chat_id", chatID)
		return
	}
	if last == nil {
		return
	}

	card, plain := tg.MessageCard(last.Content), last.Content
	if last.Structured != nil {
		card, plain = tg.CritiqueCard(*last.Structured), extract.FormatCritique(*last.Structured)
	}
	if err := tg.SendCard(ctx, b, chatID, card, plain, keyboard); err != nil {
		slog.Error("send analysis card", "error", err, "chat_id", chatID)
	}
}

// markup keeps a nil keyboard a nil interface.
func markup(k *models.InlineKeyboardMarkup) models.ReplyMarkup {
	if k == nil {
		return nil
	}
	return k
}

// streamMirror follows a session while an intent runs: the growing chat
// reply and each improvement log entry get their own live message.
type streamMirror struct {
	ctx      context.Context
	b        *bot.Bot
	chatID   int64
	interval time.Duration

	mu       sync.Mutex
	chatLen  int
	known    map[string]struct{}
	reply    *tg.LiveMessage
	replyEnd bool
	entries  map[string]*tg.LiveMessage
	order    []string
}

func newStreamMirror(ctx context.Context, b *bot.Bot, chatID int64, start session.State, interval time.Duration) *streamMirror {
	known := make(map[string]struct{}, len(start.Log))
	for _, e := range start.Log {
		known[e.ID] = struct{}{}
	}
	return &streamMirror{
		ctx:      ctx,
		b:        b,
		chatID:   chatID,
		interval: interval,
		chatLen:  len(start.Chat),
		known:    known,
		entries:  make(map[string]*tg.LiveMessage),
	}
}

func (sm *streamMirror) observe(s session.State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	replying := sm.hasReply(s)
	if replying && s.Streaming && !sm.replyEnd {
		// Nothing is sent before the first chunk so a failed request leaves
		// only the error banner behind.
		if content := s.Chat[len(s.Chat)-1].Content; content != "" {
			if sm.reply == nil {
				sm.reply = tg.NewLiveMessage(sm.b, sm.chatID, "", sm.interval)
			}
			sm.update(sm.reply, content)
		}
	}
	if !s.Streaming && sm.reply != nil && !sm.replyEnd {
		sm.replyEnd = true
		if replying {
			sm.done(sm.reply)
		} else {
			sm.discard(sm.reply)
		}
	}

	for _, e := range s.Log {
		if _, old := sm.known[e.ID]; old {
			continue
		}
		live, ok := sm.entries[e.ID]
		if !ok {
			if n := len(sm.order); n > 0 {
				sm.done(sm.entries[sm.order[n-1]])
			}
			live = tg.NewLiveMessage(sm.b, sm.chatID, e.Title, sm.interval)
			sm.entries[e.ID] = live
			sm.order = append(sm.order, e.ID)
		} else if live.Text() == e.Content {
			continue
		}
		sm.update(live, e.Content)
	}
}

// finish shows the final text of every live message still open.
func (sm *streamMirror) finish() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.reply != nil && !sm.replyEnd {
		sm.replyEnd = true
		sm.done(sm.reply)
	}
	if n := len(sm.order); n > 0 {
		sm.done(sm.entries[sm.order[n-1]])
	}
}

// hasReply reports whether s ends with a model reply added during this run.
// A failed chat turn drops it again.
func (sm *streamMirror) hasReply(s session.State) bool {
	n := len(s.Chat)
	return n > sm.chatLen && s.Chat[n-1].Role == domain.RoleModel
}

func (sm *streamMirror) update(live *tg.LiveMessage, text string) {
	if err := live.Update(sm.ctx, text); err != nil {
		slog.Warn("update live message", "error", err, "chat_id", sm.chatID)
	}
}

func (sm *streamMirror) done(live *tg.LiveMessage) {
	if err := live.Finish(sm.ctx); err != nil {
		slog.Warn("finish live message", "error", err, "chat_id", sm.chatID)
	}
}

func (sm *streamMirror) discard(live *tg.LiveMessage) {
	if err := live.Discard(sm.ctx); err != nil {
		slog.Warn("discard live message", "error", err, "chat_id", sm.chatID)
	}
}
