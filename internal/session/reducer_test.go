package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/set-night/promptforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refiningState() State {
	return State{
		Mode: ModeRefining,
		History: []domain.PromptVersion{
			{ID: 2, Content: "enhanced", Kind: domain.PromptEnhanced},
			{ID: 1, Content: "idea", Kind: domain.PromptOriginal},
		},
		ActiveID: 2,
		Chat: []domain.ChatMessage{
			{Role: domain.RoleModel, Content: "hello"},
		},
	}
}

func TestReduceLeavesInputUntouched(t *testing.T) {
	actions := []Action{
		chatStarted{text: "shorter"},
		chunkReceived{text: "x"},
		chatStreamed{revision: "rev"},
		chatFailed{err: "boom"},
		logEntryOpened{entry: domain.LogEntry{ID: "e"}},
		logChunkReceived{id: "e", text: "y"},
		cycleCompleted{prompt: "tenx"},
		historySelected{id: 1},
		resetRequested{},
	}

	s := refiningState()
	s = Reduce(s, chatStarted{text: "hi"})
	s = Reduce(s, logEntryOpened{entry: domain.LogEntry{ID: "e"}})

	for _, a := range actions {
		before := s
		want := State{
			Mode:      before.Mode,
			History:   append([]domain.PromptVersion(nil), before.History...),
			ActiveID:  before.ActiveID,
			Chat:      append([]domain.ChatMessage(nil), before.Chat...),
			Log:       append([]domain.LogEntry(nil), before.Log...),
			Busy:      before.Busy,
			Streaming: before.Streaming,
			LastError: before.LastError,
		}
		_ = Reduce(before, a)
		if diff := cmp.Diff(want, before); diff != "" {
			t.Errorf("%T mutated its input (-want +got):\n%s", a, diff)
		}
	}
}

func TestReduceChatStream(t *testing.T) {
	s := Reduce(refiningState(), chatStarted{text: "make it shorter"})
	require.Len(t, s.Chat, 3)
	assert.True(t, s.Streaming)
	assert.Equal(t, domain.RoleModel, s.Chat[2].Role)
	assert.Empty(t, s.Chat[2].Content)

	s = Reduce(s, chunkReceived{text: "Sure"})
	s = Reduce(s, chunkReceived{text: ", done."})
	assert.Equal(t, "Sure, done.", s.Chat[2].Content)

	s = Reduce(s, chatStreamed{revision: "short"})
	assert.False(t, s.Streaming)
	assert.True(t, s.Busy)
	assert.Equal(t, 3, s.ActiveID)
	assert.Equal(t, domain.PromptVersion{ID: 3, Content: "short", Kind: domain.PromptRefined}, s.History[0])
}

func TestReduceChatFailedDropsPlaceholder(t *testing.T) {
	s := Reduce(refiningState(), chatStarted{text: "why"})
	s = Reduce(s, chunkReceived{text: "partial"})
	s = Reduce(s, chatFailed{err: "network"})

	want := []domain.ChatMessage{
		{Role: domain.RoleModel, Content: "hello"},
		{Role: domain.RoleUser, Content: "why"},
	}
	assert.Empty(t, cmp.Diff(want, s.Chat))
	assert.False(t, s.Streaming)
	assert.Equal(t, "network", s.LastError)
}

func TestReduceIDsStayUnique(t *testing.T) {
	s := refiningState()
	s = Reduce(s, historySelected{id: 1})
	s = Reduce(s, cycleCompleted{prompt: "a"})
	s = Reduce(s, cycleCompleted{prompt: "b"})

	seen := map[int]bool{}
	for _, v := range s.History {
		assert.False(t, seen[v.ID], "duplicate id %d", v.ID)
		seen[v.ID] = true
	}
	assert.Equal(t, 4, s.ActiveID)
	assert.Equal(t, []int{4, 3, 2, 1}, ids(s.History))
}

func TestReduceHistorySelectedLeavesImproving(t *testing.T) {
	s := refiningState()
	s = Reduce(s, improvementStarted{})
	require.Equal(t, ModeImproving, s.Mode)

	s = Reduce(s, cycleFailed{err: "x"})
	s = Reduce(s, historySelected{id: 1})
	assert.Equal(t, ModeRefining, s.Mode)
	assert.Equal(t, 1, s.ActiveID)
	assert.Nil(t, s.Chat)
	assert.Empty(t, s.LastError)
}

func TestNextCycle(t *testing.T) {
	s := State{Log: []domain.LogEntry{
		{ID: "a", Phase: domain.PhaseEvaluation},
		{ID: "b", Phase: domain.PhaseRefinement},
		{ID: "c", Phase: domain.PhaseEvaluation},
	}}
	assert.Equal(t, 3, s.nextCycle())
	assert.Equal(t, 1, State{}.nextCycle())
}

func ids(history []domain.PromptVersion) []int {
	out := make([]int, 0, len(history))
	for _, v := range history {
		out = append(out, v.ID)
	}
	return out
}
