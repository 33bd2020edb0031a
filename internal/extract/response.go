package extract

import (
	"fmt"
	"strings"

	"github.com/set-night/promptforge/internal/domain"
)

// Canned texts used when the model ignores the requested structure.
const (
	NoPromptFallback    = "Sorry, I couldn't generate a prompt. Please try a different input."
	UnstructuredMessage = "I had trouble structuring my response. How can we refine this to better suit your needs?"
	GeneratedMessage    = "I've generated the prompt above. Please review it and let me know your thoughts so we can refine it together!"
)

// Enhanced is the outcome of an enhancement call. Exactly one of Analysis and
// Message carries the text shown to the user.
type Enhanced struct {
	Prompt   string
	Analysis *domain.CritiqueAndQuestions
	Message  string
}

// Enhancement parses a markdown enhancement response (Prompt, Critique,
// Questions to Improve).
func Enhancement(text string) Enhanced {
	text = strings.TrimSpace(text)

	prompt, end, ok := fenced(text, HeadingPrompt)
	if !ok {
		if text == "" {
			text = NoPromptFallback
		}
		return Enhanced{Prompt: text, Message: UnstructuredMessage}
	}

	rest := strings.TrimSpace(text[end:])
	if rest == "" {
		return Enhanced{Prompt: prompt, Message: GeneratedMessage}
	}
	if _, _, ok := sectionBounds(rest, HeadingCritique); ok {
		analysis := Critique(rest)
		return Enhanced{Prompt: prompt, Analysis: &analysis}
	}
	return Enhanced{Prompt: prompt, Message: rest}
}

// Critique parses a markdown critique response. Without recognizable headings
// the whole text becomes the critique.
func Critique(text string) domain.CritiqueAndQuestions {
	text = strings.TrimSpace(text)
	critique, hasCritique := Section(text, HeadingCritique)
	questions, hasQuestions := Section(text, HeadingQuestions)

	out := domain.CritiqueAndQuestions{Critique: critique, Questions: []string{}}
	if hasQuestions {
		out.Questions = capQuestions(NumberedList(questions))
	}
	if !hasCritique {
		out.Critique = text
		if hasQuestions {
			out.Critique = strings.TrimSpace(text[:headingStart(text, HeadingQuestions)])
		}
	}
	return out
}

func headingStart(text, heading string) int {
	start, _, ok := sectionBounds(text, heading)
	if !ok {
		return len(text)
	}
	// Walk back to the start of the heading line.
	if i := strings.LastIndex(text[:start], "\n"); i >= 0 {
		return i + 1
	}
	return 0
}

// FormatCritique renders an analysis as the markdown stored in the transcript.
func FormatCritique(c domain.CritiqueAndQuestions) string {
	var b strings.Builder
	b.WriteString("**Critique:**\n")
	b.WriteString(c.Critique)
	b.WriteString("\n\n")
	if len(c.Questions) > 0 {
		b.WriteString("**Questions to Improve:**\n")
		for i, q := range c.Questions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	return strings.TrimSpace(b.String())
}
