package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/promptforge/internal/domain"
	"github.com/set-night/promptforge/internal/extract"
	"github.com/set-night/promptforge/internal/llm"
	"github.com/set-night/promptforge/internal/prompts"
)

type reply struct {
	text string
	err  error
}

// scriptedGateway answers Generate calls in order and records every request.
type scriptedGateway struct {
	replies []reply
	stream  []string
	calls   []llm.Request
}

func (g *scriptedGateway) Generate(_ context.Context, req llm.Request) (string, error) {
	g.calls = append(g.calls, req)
	if len(g.replies) == 0 {
		return "", errors.New("unexpected call")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func (g *scriptedGateway) GenerateStream(_ context.Context, req llm.Request) iter.Seq2[string, error] {
	g.calls = append(g.calls, req)
	return func(yield func(string, error) bool) {
		for _, c := range g.stream {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func newAssistant(g *scriptedGateway, structured bool) *AssistantService {
	return NewAssistantService(g, prompts.Default(), AssistantOptions{Structured: structured})
}

func TestCritiqueStructured(t *testing.T) {
	g := &scriptedGateway{replies: []reply{{text: `{"critique":"Solid.","questions":["Tone?"]}`}}}

	got, err := newAssistant(g, true).Critique(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, domain.CritiqueAndQuestions{Critique: "Solid.", Questions: []string{"Tone?"}}, got)
	require.Len(t, g.calls, 1)
	assert.NotNil(t, g.calls[0].Schema)
	assert.Contains(t, g.calls[0].Prompt, "P")
}

func TestCritiqueFallsBackOnParseFailure(t *testing.T) {
	g := &scriptedGateway{replies: []reply{
		{text: "not json"},
		{text: "**Critique:**\nOkay.\n\n**Questions to Improve:**\n1. Why?"},
	}}

	got, err := newAssistant(g, true).Critique(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, domain.CritiqueAndQuestions{Critique: "Okay.", Questions: []string{"Why?"}}, got)

	require.Len(t, g.calls, 2)
	assert.Nil(t, g.calls[1].Schema)
	assert.Contains(t, g.calls[1].Prompt, "**Questions to Improve:**")
}

func TestCritiqueFallsBackWhenUnsupported(t *testing.T) {
	g := &scriptedGateway{replies: []reply{
		{err: llm.ErrStructuredUnsupported},
		{text: "Plain feedback."},
	}}

	got, err := newAssistant(g, true).Critique(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, "Plain feedback.", got.Critique)
	assert.Len(t, g.calls, 2)
}

func TestCritiqueGatewayErrorPropagates(t *testing.T) {
	apiErr := &llm.Error{Kind: llm.KindAuth, Provider: llm.ProviderGemini, Err: errors.New("bad key")}
	g := &scriptedGateway{replies: []reply{{err: apiErr}}}

	_, err := newAssistant(g, true).Critique(context.Background(), "P")
	assert.Equal(t, llm.KindAuth, llm.Classify(err))
	assert.Len(t, g.calls, 1)
}

func TestEnhanceStructured(t *testing.T) {
	g := &scriptedGateway{replies: []reply{{text: `{"enhancedPrompt":"You are a poet.","critique":"Good.","questions":["Rhyme?"]}`}}}

	got, err := newAssistant(g, true).Enhance(context.Background(), "poem")
	require.NoError(t, err)
	assert.Equal(t, "You are a poet.", got.Prompt)
	assert.Equal(t, domain.RoleModel, got.Message.Role)
	require.NotNil(t, got.Message.Structured)
	assert.Equal(t, []string{"Rhyme?"}, got.Message.Structured.Questions)
	assert.Equal(t, "poem", g.calls[0].Prompt)
	assert.NotEmpty(t, g.calls[0].SystemInstruction)
}

func TestEnhanceMarkdown(t *testing.T) {
	g := &scriptedGateway{replies: []reply{{text: "no structure at all"}}}

	got, err := newAssistant(g, false).Enhance(context.Background(), "poem")
	require.NoError(t, err)
	assert.Equal(t, "no structure at all", got.Prompt)
	assert.Equal(t, extract.UnstructuredMessage, got.Message.Content)
	assert.Nil(t, got.Message.Structured)
	assert.Contains(t, g.calls[0].Prompt, "poem")
}

func TestChatBuildsHistory(t *testing.T) {
	g := &scriptedGateway{stream: []string{"ab", "cd"}}
	prior := []domain.ChatMessage{
		{Role: domain.RoleModel, Content: "critique"},
		{Role: domain.RoleUser, Content: "shorter"},
		{Role: domain.RoleModel, Content: ""},
	}

	text, err := llm.Collect(newAssistant(g, true).Chat(context.Background(), "CURRENT", prior, "again"), nil)
	require.NoError(t, err)
	assert.Equal(t, "abcd", text)

	req := g.calls[0]
	assert.Equal(t, "again", req.Prompt)
	assert.True(t, strings.Contains(req.SystemInstruction, "CURRENT"))
	assert.Equal(t, []llm.Turn{{Role: domain.RoleModel, Content: "critique"}, {Role: domain.RoleUser, Content: "shorter"}}, req.History)
}

func TestRefineBindsBothPlaceholders(t *testing.T) {
	g := &scriptedGateway{}
	_, err := llm.Collect(newAssistant(g, false).Refine(context.Background(), "THE PROMPT", "THE REPORT"), nil)
	require.NoError(t, err)

	assert.Contains(t, g.calls[0].Prompt, "THE PROMPT")
	assert.Contains(t, g.calls[0].Prompt, "THE REPORT")
	assert.NotContains(t, g.calls[0].Prompt, "{{")
}
