package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/promptforge/internal/domain"
)

func TestStructuredJSON(t *testing.T) {
	fields, err := StructuredJSON(`{"critique":"c","questions":["q1"]}`, "critique", "questions")
	require.NoError(t, err)
	assert.JSONEq(t, `"c"`, string(fields["critique"]))
	assert.JSONEq(t, `["q1"]`, string(fields["questions"]))
}

func TestStructuredJSONFenced(t *testing.T) {
	fields, err := StructuredJSON("```json\n{\"critique\":\"c\",\"questions\":[]}\n```", "critique")
	require.NoError(t, err)
	assert.Contains(t, fields, "questions")
}

func TestStructuredJSONFailures(t *testing.T) {
	for _, text := range []string{"not json", "", "null", `["a"]`, `{"critique":"c"}`} {
		_, err := StructuredJSON(text, "critique", "questions")
		assert.ErrorIs(t, err, ErrParseFailure, text)
	}
}

func TestDecodeCritiqueCapsQuestions(t *testing.T) {
	fields := map[string]json.RawMessage{
		"critique":  json.RawMessage(`" solid "`),
		"questions": json.RawMessage(`["a"," ","b","c","d","e"]`),
	}

	got, err := DecodeCritique(fields)
	require.NoError(t, err)
	assert.Equal(t, domain.CritiqueAndQuestions{Critique: "solid", Questions: []string{"a", "b", "c", "d"}}, got)
}

func TestDecodeCritiqueWrongType(t *testing.T) {
	_, err := DecodeCritique(map[string]json.RawMessage{"critique": json.RawMessage(`42`)})
	assert.ErrorIs(t, err, ErrParseFailure)
}

func TestDecodeEnhancement(t *testing.T) {
	fields, err := StructuredJSON(`{"enhancedPrompt":"P","critique":"C","questions":["Q"]}`)
	require.NoError(t, err)

	got, err := DecodeEnhancement(fields)
	require.NoError(t, err)
	assert.Equal(t, "P", got.Prompt)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, []string{"Q"}, got.Analysis.Questions)

	fields, err = StructuredJSON(`{"enhancedPrompt":"  ","critique":"C","questions":[]}`)
	require.NoError(t, err)
	_, err = DecodeEnhancement(fields)
	assert.ErrorIs(t, err, ErrParseFailure)
}
