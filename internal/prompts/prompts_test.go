package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasAllTemplates(t *testing.T) {
	e := Default()
	for _, id := range []string{Enhance, EnhanceSystem, Critique, CritiqueSystem, CritiqueRequest, ChatSystem, Evaluate, Refine} {
		assert.True(t, e.Has(id), id)
	}
}

func TestRenderSubstitutesBindings(t *testing.T) {
	e := &Engine{templates: map[string]string{"t": "A {{X}} B {{Y}} C {{X}}"}}

	got := e.Render("t", map[string]string{"X": "1", "Y": "2"})
	assert.Equal(t, "A 1 B 2 C 1", got)
}

func TestRenderLeavesMissingPlaceholders(t *testing.T) {
	e := &Engine{templates: map[string]string{"t": "{{PROMPT_TO_IMPROVE}} / {{CRITIQUE}}"}}

	got := e.Render("t", map[string]string{"PROMPT_TO_IMPROVE": "p"})
	assert.Equal(t, "p / {{CRITIQUE}}", got)
}

func TestRenderDoesNotRescanValues(t *testing.T) {
	e := &Engine{templates: map[string]string{"t": "{{A}}{{B}}"}}

	got := e.Render("t", map[string]string{"A": "{{B}}", "B": "x"})
	assert.Equal(t, "{{B}}x", got)
}

func TestRenderUnknownTemplate(t *testing.T) {
	assert.Equal(t, "", Default().Render("nope", map[string]string{"A": "b"}))
}

func TestRenderEmbeddedEnhance(t *testing.T) {
	got := Default().Render(Enhance, map[string]string{UserPrompt: "write a haiku about Go"})
	assert.Contains(t, got, "write a haiku about Go")
	assert.NotContains(t, got, "{{USER_PROMPT}}")
	assert.Contains(t, got, "**Prompt:**")
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  evaluate: \"rate {{PROMPT_TO_CRITIQUE}}\"\n"), 0o600))

	e, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rate p", e.Render(Evaluate, map[string]string{PromptToCritique: "p"}))
	assert.True(t, strings.Contains(e.Render(Refine, nil), "{{PROMPT_TO_IMPROVE}}"))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	e, err := Load("")
	require.NoError(t, err)
	assert.True(t, e.Has(ChatSystem))
}
