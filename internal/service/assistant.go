package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/set-night/promptforge/internal/domain"
	"github.com/set-night/promptforge/internal/extract"
	"github.com/set-night/promptforge/internal/llm"
	"github.com/set-night/promptforge/internal/prompts"
)

var critiqueSchema = &llm.Schema{
	Name: "critique_and_questions",
	Properties: map[string]llm.Property{
		"critique":  {Type: llm.TypeString, Description: "Concise markdown critique of the prompt."},
		"questions": {Type: llm.TypeStringList, Description: "Up to 4 clarifying questions."},
	},
	Required: []string{"critique", "questions"},
}

var enhanceSchema = &llm.Schema{
	Name: "enhanced_prompt",
	Properties: map[string]llm.Property{
		"enhancedPrompt": {Type: llm.TypeString, Description: "The improved prompt, without code fences."},
		"critique":       {Type: llm.TypeString, Description: "Markdown critique of the improved prompt."},
		"questions":      {Type: llm.TypeStringList, Description: "Up to 4 clarifying questions."},
	},
	Required: []string{"enhancedPrompt", "critique", "questions"},
}

// Enhancement is the result of turning a raw idea into a first prompt.
type Enhancement struct {
	Prompt  string
	Message domain.ChatMessage
}

// AssistantService runs every model-backed step of the prompt workflow:
// render a template, call the gateway, structure the answer.
type AssistantService struct {
	gateway    llm.Gateway
	templates  *prompts.Engine
	structured bool
	webSearch  bool
}

type AssistantOptions struct {
	// Structured asks the model for JSON first and falls back to markdown.
	Structured bool
	WebSearch  bool
}

func NewAssistantService(gateway llm.Gateway, templates *prompts.Engine, opts AssistantOptions) *AssistantService {
	return &AssistantService{
		gateway:    gateway,
		templates:  templates,
		structured: opts.Structured,
		webSearch:  opts.WebSearch,
	}
}

// Enhance generates the first prompt version and the opening model message.
func (s *AssistantService) Enhance(ctx context.Context, idea string) (Enhancement, error) {
	if s.structured {
		text, err := s.gateway.Generate(ctx, llm.Request{
			Prompt:            idea,
			SystemInstruction: s.templates.Render(prompts.EnhanceSystem, nil),
			Schema:            enhanceSchema,
		})
		switch {
		case err == nil:
			fields, perr := extract.StructuredJSON(text, enhanceSchema.Required...)
			if perr == nil {
				var enhanced extract.Enhanced
				if enhanced, perr = extract.DecodeEnhancement(fields); perr == nil {
					return toEnhancement(enhanced), nil
				}
			}
			slog.Warn("structured enhancement unusable, falling back to markdown", "error", perr)
		case errors.Is(err, llm.ErrStructuredUnsupported):
		default:
			return Enhancement{}, fmt.Errorf("enhance prompt: %w", err)
		}
	}

	text, err := s.gateway.Generate(ctx, llm.Request{
		Prompt:    s.templates.Render(prompts.Enhance, map[string]string{prompts.UserPrompt: idea}),
		WebSearch: s.webSearch,
	})
	if err != nil {
		return Enhancement{}, fmt.Errorf("enhance prompt: %w", err)
	}
	return toEnhancement(extract.Enhancement(text)), nil
}

func toEnhancement(e extract.Enhanced) Enhancement {
	if e.Analysis != nil {
		return Enhancement{Prompt: e.Prompt, Message: AnalysisMessage(*e.Analysis)}
	}
	return Enhancement{Prompt: e.Prompt, Message: domain.ChatMessage{Role: domain.RoleModel, Content: e.Message}}
}

// AnalysisMessage wraps an analysis as a model chat message.
func AnalysisMessage(a domain.CritiqueAndQuestions) domain.ChatMessage {
	return domain.ChatMessage{
		Role:       domain.RoleModel,
		Content:    extract.FormatCritique(a),
		Structured: &a,
	}
}

// Critique analyzes a prompt and proposes clarifying questions.
func (s *AssistantService) Critique(ctx context.Context, prompt string) (domain.CritiqueAndQuestions, error) {
	bindings := map[string]string{prompts.PromptToAnalyze: prompt}

	if s.structured {
		text, err := s.gateway.Generate(ctx, llm.Request{
			Prompt:            s.templates.Render(prompts.CritiqueRequest, bindings),
			SystemInstruction: s.templates.Render(prompts.CritiqueSystem, nil),
			Schema:            critiqueSchema,
		})
		switch {
		case err == nil:
			fields, perr := extract.StructuredJSON(text, critiqueSchema.Required...)
			if perr == nil {
				var analysis domain.CritiqueAndQuestions
				if analysis, perr = extract.DecodeCritique(fields); perr == nil {
					return analysis, nil
				}
			}
			slog.Warn("structured critique unusable, falling back to markdown", "error", perr)
		case errors.Is(err, llm.ErrStructuredUnsupported):
		default:
			return domain.CritiqueAndQuestions{}, fmt.Errorf("critique prompt: %w", err)
		}
	}

	text, err := s.gateway.Generate(ctx, llm.Request{
		Prompt:    s.templates.Render(prompts.Critique, bindings),
		WebSearch: s.webSearch,
	})
	if err != nil {
		return domain.CritiqueAndQuestions{}, fmt.Errorf("critique prompt: %w", err)
	}
	return extract.Critique(text), nil
}

// Chat streams the model's reply to text, given the transcript before it.
func (s *AssistantService) Chat(ctx context.Context, prompt string, prior []domain.ChatMessage, text string) iter.Seq2[string, error] {
	history := make([]llm.Turn, 0, len(prior))
	for _, m := range prior {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, llm.Turn{Role: m.Role, Content: m.Content})
	}
	return s.gateway.GenerateStream(ctx, llm.Request{
		Prompt:            text,
		SystemInstruction: s.templates.Render(prompts.ChatSystem, map[string]string{prompts.CurrentPrompt: prompt}),
		History:           history,
		WebSearch:         s.webSearch,
	})
}

// Evaluate streams a rubric-based evaluation of prompt.
func (s *AssistantService) Evaluate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return s.gateway.GenerateStream(ctx, llm.Request{
		Prompt: s.templates.Render(prompts.Evaluate, map[string]string{prompts.PromptToCritique: prompt}),
	})
}

// Refine streams a revision of prompt that applies evaluation.
func (s *AssistantService) Refine(ctx context.Context, prompt, evaluation string) iter.Seq2[string, error] {
	return s.gateway.GenerateStream(ctx, llm.Request{
		Prompt: s.templates.Render(prompts.Refine, map[string]string{
			prompts.PromptToImprove: prompt,
			prompts.CritiqueText:    evaluation,
		}),
	})
}
