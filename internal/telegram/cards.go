package telegram

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/set-night/promptforge/internal/domain"
)

const historyPreviewLen = 60

func card(render func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		render(&b)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PromptCard shows one prompt version in a copyable block.
func PromptCard(v domain.PromptVersion, active bool) templ.Component {
	return card(func(b *strings.Builder) {
		fmt.Fprintf(b, "<b>Prompt #%d</b> <i>%s</i>", v.ID, templ.EscapeString(string(v.Kind)))
		if active {
			b.WriteString(" (active)")
		}
		b.WriteString("\n<pre>")
		b.WriteString(templ.EscapeString(v.Content))
		b.WriteString("</pre>")
	})
}

// CritiqueCard shows an analysis with its numbered questions.
func CritiqueCard(a domain.CritiqueAndQuestions) templ.Component {
	return card(func(b *strings.Builder) {
		b.WriteString("<b>Critique</b>\n")
		b.WriteString(MarkdownToHTML(strings.TrimSpace(a.Critique)))
		if len(a.Questions) == 0 {
			return
		}
		b.WriteString("\n\n<b>Questions to Improve</b>")
		for i, q := range a.Questions {
			fmt.Fprintf(b, "\n%d. %s", i+1, MarkdownToHTML(q))
		}
	})
}

// MessageCard shows a model message that carries no analysis.
func MessageCard(text string) templ.Component {
	return card(func(b *strings.Builder) {
		b.WriteString(MarkdownToHTML(strings.TrimSpace(text)))
	})
}

// LogEntryCard shows a finished improvement step.
func LogEntryCard(e domain.LogEntry) templ.Component {
	return card(func(b *strings.Builder) {
		fmt.Fprintf(b, "<b>%s</b>\n", templ.EscapeString(e.Title))
		b.WriteString(MarkdownToHTML(strings.TrimSpace(e.Content)))
	})
}

// HistoryList lists versions newest first with a short preview.
func HistoryList(history []domain.PromptVersion, activeID int) templ.Component {
	return card(func(b *strings.Builder) {
		b.WriteString("<b>Prompt history</b>")
		if len(history) == 0 {
			b.WriteString("\nNo prompts yet.")
			return
		}
		for _, v := range history {
			fmt.Fprintf(b, "\n<b>#%d</b> %s", v.ID, templ.EscapeString(string(v.Kind)))
			if v.ID == activeID {
				b.WriteString(" <i>(active)</i>")
			}
			fmt.Fprintf(b, ": %s", templ.EscapeString(Preview(v.Content, historyPreviewLen)))
		}
	})
}

// ErrorBanner shows the session's last error.
func ErrorBanner(msg string) templ.Component {
	return card(func(b *strings.Builder) {
		b.WriteString("⚠️ <b>Error</b>\n")
		b.WriteString(templ.EscapeString(msg))
	})
}

// Preview flattens text to one line of at most n runes.
func Preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= n {
		return flat
	}
	return string(r[:n-1]) + "…"
}

// CopyCard is the bare prompt in a code block.
func CopyCard(content string) templ.Component {
	return card(func(b *strings.Builder) {
		b.WriteString("<pre>")
		b.WriteString(templ.EscapeString(content))
		b.WriteString("</pre>")
	})
}
