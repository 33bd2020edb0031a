package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/set-night/promptforge/internal/domain"
)

// Gemini talks to the Gemini API. It supports schema-constrained output and
// Google Search grounding.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(req), geminiConfig(req))
	if err != nil {
		return "", g.wrap(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *Gemini) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, geminiContents(req), geminiConfig(req)) {
			if err != nil {
				yield("", g.wrap(err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func (g *Gemini) wrap(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(ProviderGemini, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return statusError(ProviderGemini, apiErrPtr.Code, err)
	}
	return transportError(ProviderGemini, err)
}

func geminiContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	switch {
	case req.Schema != nil:
		// JSON mode and tools cannot be combined.
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = geminiSchema(req.Schema)
	case req.WebSearch:
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

func geminiSchema(s *Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	for _, name := range s.propertyNames() {
		p := s.Properties[name]
		prop := &genai.Schema{Type: genai.TypeString, Description: p.Description}
		if p.Type == TypeStringList {
			prop = &genai.Schema{
				Type:        genai.TypeArray,
				Description: p.Description,
				Items:       &genai.Schema{Type: genai.TypeString},
			}
		}
		props[name] = prop
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required,
	}
}
