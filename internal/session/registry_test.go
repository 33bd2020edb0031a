package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReusesMachines(t *testing.T) {
	r, err := NewRegistry(4, &fakeAssistant{}, newMemStore(), Hooks{})
	require.NoError(t, err)
	ctx := context.Background()

	a := r.Get(ctx, "tg:1")
	assert.Same(t, a, r.Get(ctx, "tg:1"))
	assert.NotSame(t, a, r.Get(ctx, "tg:2"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistryRestoresEvictedSession(t *testing.T) {
	r, err := NewRegistry(1, &fakeAssistant{}, newMemStore(), Hooks{})
	require.NoError(t, err)
	ctx := context.Background()

	first := r.Get(ctx, "tg:1")
	require.NoError(t, first.Submit(ctx, "idea"))

	r.Get(ctx, "tg:2")
	restored := r.Get(ctx, "tg:1")

	assert.NotSame(t, first, restored)
	assert.Equal(t, first.Snapshot().History, restored.Snapshot().History)
	assert.Equal(t, ModeRefining, restored.Snapshot().Mode)
}

func TestRegistryRejectsBadSize(t *testing.T) {
	_, err := NewRegistry(0, &fakeAssistant{}, nil, Hooks{})
	assert.Error(t, err)
}
