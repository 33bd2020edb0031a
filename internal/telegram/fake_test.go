package telegram

import (
	"context"
	"errors"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []*bot.SendMessageParams
	edits    []*bot.EditMessageTextParams
	deleted  []int
	rejectHT bool
}

func (f *fakeMessenger) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectHT && p.ParseMode == models.ParseModeHTML {
		return nil, errors.New("bad request: can't parse entities")
	}
	f.sent = append(f.sent, p)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, p)
	return &models.Message{ID: p.MessageID}, nil
}

func (f *fakeMessenger) SendChatAction(context.Context, *bot.SendChatActionParams) (bool, error) {
	return true, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, p *bot.DeleteMessageParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p.MessageID)
	return true, nil
}
