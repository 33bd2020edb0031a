package session

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry hands out one Machine per scope, keeping the most recently used
// ones in memory. An evicted session is restored from the store on next use.
type Registry struct {
	assistant Assistant
	store     Store
	hooks     Hooks

	mu       sync.Mutex
	machines *lru.Cache[string, *Machine]
}

func NewRegistry(size int, assistant Assistant, store Store, hooks Hooks) (*Registry, error) {
	cache, err := lru.New[string, *Machine](size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Registry{
		assistant: assistant,
		store:     store,
		hooks:     hooks,
		machines:  cache,
	}, nil
}

// Get returns the machine for scope, loading it on first use.
func (r *Registry) Get(ctx context.Context, scope string) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.machines.Get(scope); ok {
		return m
	}
	m := NewMachine(ctx, scope, r.assistant, r.store, r.hooks)
	r.machines.Add(scope, m)
	return m
}

func (r *Registry) Len() int {
	return r.machines.Len()
}
