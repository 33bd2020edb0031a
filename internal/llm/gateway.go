// Package llm is the gateway to hosted language models. Providers share one
// request shape, one streaming contract and one error taxonomy.
package llm

import (
	"context"
	"iter"
	"sort"
	"strings"

	"github.com/set-night/promptforge/internal/domain"
)

// Turn is one prior message of a multi-turn conversation.
type Turn struct {
	Role    domain.Role
	Content string
}

// Request is a single generation call. Prompt is the new user text; History
// holds the turns before it, oldest first.
type Request struct {
	Prompt            string
	SystemInstruction string
	History           []Turn
	// Schema asks for a JSON object of this shape. Providers that cannot
	// honour it fail with ErrStructuredUnsupported.
	Schema *Schema
	// WebSearch lets the model ground answers on search results when the
	// provider supports it. Ignored together with Schema.
	WebSearch bool
}

// Gateway generates text from a Request. A stream yields chunks in arrival
// order and ends either normally or after yielding exactly one error. Streams
// are not restartable.
type Gateway interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Collect drains a stream, forwarding each chunk to onChunk. The result is
// the concatenation of all chunks received before any error.
func Collect(seq iter.Seq2[string, error], onChunk func(string)) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return b.String(), nil
}

type PropertyType string

const (
	TypeString     PropertyType = "string"
	TypeStringList PropertyType = "string_list"
)

type Property struct {
	Type        PropertyType
	Description string
}

// Schema describes a flat JSON object response.
type Schema struct {
	Name       string
	Properties map[string]Property
	Required   []string
}

// JSONSchema renders the schema as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for _, name := range s.propertyNames() {
		p := s.Properties[name]
		var prop map[string]any
		switch p.Type {
		case TypeStringList:
			prop = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		default:
			prop = map[string]any{"type": "string"}
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             s.Required,
		"additionalProperties": false,
	}
}

func (s *Schema) propertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
