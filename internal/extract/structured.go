package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/set-night/promptforge/internal/domain"
)

// ErrParseFailure marks model output that does not match the requested JSON
// shape. Callers fall back to the markdown path.
var ErrParseFailure = errors.New("parse failure")

var jsonFenceRe = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\\n?(.*?)\\n?```$")

// StructuredJSON decodes a JSON object and checks that every required key is
// present. A single fence around the whole text is tolerated.
func StructuredJSON(text string, required ...string) (map[string]json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrParseFailure)
	}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrParseFailure, key)
		}
	}
	return fields, nil
}

// DecodeCritique reads the {critique, questions} shape.
func DecodeCritique(fields map[string]json.RawMessage) (domain.CritiqueAndQuestions, error) {
	var out domain.CritiqueAndQuestions
	if err := decodeField(fields, "critique", &out.Critique); err != nil {
		return out, err
	}
	var questions []string
	if raw, ok := fields["questions"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &questions); err != nil {
			return out, fmt.Errorf("%w: questions: %v", ErrParseFailure, err)
		}
	}
	out.Critique = strings.TrimSpace(out.Critique)
	out.Questions = capQuestions(questions)
	return out, nil
}

// DecodeEnhancement reads the {enhancedPrompt, critique, questions} shape.
func DecodeEnhancement(fields map[string]json.RawMessage) (Enhanced, error) {
	var prompt string
	if err := decodeField(fields, "enhancedPrompt", &prompt); err != nil {
		return Enhanced{}, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Enhanced{}, fmt.Errorf("%w: empty enhancedPrompt", ErrParseFailure)
	}
	analysis, err := DecodeCritique(fields)
	if err != nil {
		return Enhanced{}, err
	}
	return Enhanced{Prompt: prompt, Analysis: &analysis}, nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: missing key %q", ErrParseFailure, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrParseFailure, key, err)
	}
	return nil
}

func capQuestions(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == domain.MaxQuestions {
			break
		}
	}
	return out
}
