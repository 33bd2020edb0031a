package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/promptforge/internal/domain"
)

func TestEnhancementStructured(t *testing.T) {
	text := "**Prompt:**\n```\nYou are a poet.\n```\n\n**Critique:**\nClear.\n\n**Questions to Improve:**\n1. Rhyme?\n2. Length?"

	got := Enhancement(text)
	assert.Equal(t, "You are a poet.", got.Prompt)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "Clear.", got.Analysis.Critique)
	assert.Equal(t, []string{"Rhyme?", "Length?"}, got.Analysis.Questions)
	assert.Empty(t, got.Message)
}

func TestEnhancementFreeTextAfterPrompt(t *testing.T) {
	got := Enhancement("**Prompt:**\n```\nP\n```\nLet me know what you think.")
	assert.Equal(t, "P", got.Prompt)
	assert.Nil(t, got.Analysis)
	assert.Equal(t, "Let me know what you think.", got.Message)
}

func TestEnhancementNothingAfterPrompt(t *testing.T) {
	got := Enhancement("**Prompt:**\n```\nP\n```\n")
	assert.Equal(t, Enhanced{Prompt: "P", Message: GeneratedMessage}, got)
}

func TestEnhancementUnstructured(t *testing.T) {
	got := Enhancement("just some text")
	assert.Equal(t, Enhanced{Prompt: "just some text", Message: UnstructuredMessage}, got)

	got = Enhancement("   ")
	assert.Equal(t, Enhanced{Prompt: NoPromptFallback, Message: UnstructuredMessage}, got)
}

func TestCritiqueFallbacks(t *testing.T) {
	got := Critique("It is fine.")
	assert.Equal(t, domain.CritiqueAndQuestions{Critique: "It is fine.", Questions: []string{}}, got)

	got = Critique("Some thoughts.\n**Questions to Improve:**\n1. A\n2. B\n3. C\n4. D\n5. E")
	assert.Equal(t, "Some thoughts.", got.Critique)
	assert.Equal(t, []string{"A", "B", "C", "D"}, got.Questions)
}

func TestFormatCritique(t *testing.T) {
	got := FormatCritique(domain.CritiqueAndQuestions{Critique: "Solid.", Questions: []string{"Tone?", "Audience?"}})
	assert.Equal(t, "**Critique:**\nSolid.\n\n**Questions to Improve:**\n1. Tone?\n2. Audience?", got)

	got = FormatCritique(domain.CritiqueAndQuestions{Critique: "Solid."})
	assert.Equal(t, "**Critique:**\nSolid.", got)
}

func TestFormatThenParse(t *testing.T) {
	in := domain.CritiqueAndQuestions{Critique: "Needs a persona.", Questions: []string{"Who is the reader?"}}
	assert.Equal(t, in, Critique(FormatCritique(in)))
}
