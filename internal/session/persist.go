package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/domain"
)

// Store is a scoped key/value store holding the persisted part of a session.
type Store interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Put(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope string, keys ...string) error
}

// persisted is the durable slice of State.
type persisted struct {
	history  []domain.PromptVersion
	activeID int
}

func snapshotOf(s State) persisted {
	return persisted{history: s.History, activeID: s.ActiveID}
}

// load reads a scope's history and active id. Unreadable or corrupt values
// count as absent.
func load(ctx context.Context, store Store, scope string) persisted {
	var p persisted
	if store == nil {
		return p
	}

	raw, ok, err := store.Get(ctx, scope, config.KeyPromptHistory)
	if err != nil {
		slog.Warn("read prompt history", "scope", scope, "error", err)
		return p
	}
	if ok {
		history, err := decodeHistory(raw)
		if err != nil {
			slog.Warn("discard corrupt prompt history", "scope", scope, "error", err)
		} else {
			p.history = history
		}
	}

	raw, ok, err = store.Get(ctx, scope, config.KeyActivePromptID)
	if err != nil {
		slog.Warn("read active prompt id", "scope", scope, "error", err)
		return p
	}
	if ok {
		id, err := strconv.Atoi(raw)
		if err != nil {
			slog.Warn("discard corrupt active prompt id", "scope", scope, "error", err)
		} else if _, found := domain.FindPrompt(p.history, id); found {
			p.activeID = id
		}
	}
	return p
}

func decodeHistory(raw string) ([]domain.PromptVersion, error) {
	var history []domain.PromptVersion
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	seen := make(map[int]struct{}, len(history))
	for _, v := range history {
		if v.ID <= 0 {
			return nil, fmt.Errorf("invalid prompt id %d", v.ID)
		}
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("duplicate prompt id %d", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return history, nil
}

// save writes whatever changed between prev and next. Failures are logged;
// the in-memory session stays authoritative.
func save(ctx context.Context, store Store, scope string, prev, next persisted) {
	if store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if !slices.Equal(prev.history, next.history) {
		if len(next.history) == 0 {
			if err := store.Delete(ctx, scope, config.KeyPromptHistory); err != nil {
				slog.Error("delete prompt history", "scope", scope, "error", err)
			}
		} else {
			raw, err := json.Marshal(next.history)
			if err == nil {
				err = store.Put(ctx, scope, config.KeyPromptHistory, string(raw))
			}
			if err != nil {
				slog.Error("save prompt history", "scope", scope, "error", err)
			}
		}
	}

	if prev.activeID != next.activeID {
		var err error
		if next.activeID == 0 {
			err = store.Delete(ctx, scope, config.KeyActivePromptID)
		} else {
			err = store.Put(ctx, scope, config.KeyActivePromptID, strconv.Itoa(next.activeID))
		}
		if err != nil {
			slog.Error("save active prompt id", "scope", scope, "error", err)
		}
	}
}

func forget(ctx context.Context, store Store, scope string) {
	if store == nil {
		return
	}
	if err := store.Delete(context.WithoutCancel(ctx), scope, config.KeyPromptHistory, config.KeyActivePromptID); err != nil {
		slog.Error("clear session", "scope", scope, "error", err)
	}
}
