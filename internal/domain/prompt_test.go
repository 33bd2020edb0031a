package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPromptID(t *testing.T) {
	assert.Equal(t, 1, NextPromptID(nil))
	assert.Equal(t, 3, NextPromptID([]PromptVersion{{ID: 2}, {ID: 1}}))
	// Gaps never produce a reused id.
	assert.Equal(t, 8, NextPromptID([]PromptVersion{{ID: 3}, {ID: 7}, {ID: 1}}))
}

func TestFindPrompt(t *testing.T) {
	history := []PromptVersion{{ID: 2, Content: "b"}, {ID: 1, Content: "a"}}

	p, ok := FindPrompt(history, 1)
	assert.True(t, ok)
	assert.Equal(t, "a", p.Content)

	_, ok = FindPrompt(history, 9)
	assert.False(t, ok)

	_, ok = FindPrompt(history, 0)
	assert.False(t, ok)
}
