package telegram

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
	"github.com/set-night/promptforge/internal/extract"
)

// SplitMessage splits a message into chunks of maxLen characters,
// trying to split at newlines when possible.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if utf8.RuneCountInString(text) <= maxLen {
			parts = append(parts, text)
			break
		}

		runes := []rune(text)
		splitAt := maxLen

		chunk := string(runes[:maxLen])
		if nl := strings.LastIndex(chunk, "\n"); nl >= 0 {
			if at := utf8.RuneCountInString(chunk[:nl]) + 1; at > maxLen/2 {
				splitAt = at
			}
		}

		parts = append(parts, string(runes[:splitAt]))
		text = string(runes[splitAt:])
	}

	return parts
}

// FixMarkdown closes an unbalanced code fence or inline code span so a
// partial model reply still parses.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}
	return fixInlineCode(text)
}

func fixInlineCode(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == "```" {
			if inlineOpen {
				builder.WriteRune('`')
				inlineOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString("```")
			i += 2
			continue
		}

		if !inCodeBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}

		builder.WriteRune(runes[i])
	}

	if inlineOpen {
		builder.WriteRune('`')
	}

	return builder.String()
}

var (
	fenceRe      = regexp.MustCompile("(?s)" + extract.FenceBody)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	inlineCodeRe = regexp.MustCompile("`([^`\\n]+)`")
)

// MarkdownToHTML converts the markdown subset models answer with (fences,
// bold, inline code) into Telegram HTML. Everything else is escaped.
func MarkdownToHTML(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range fenceRe.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(inlineHTML(text[last:loc[0]]))
		b.WriteString("<pre>")
		b.WriteString(templ.EscapeString(strings.Trim(text[loc[2]:loc[3]], "\n")))
		b.WriteString("</pre>")
		last = loc[1]
	}
	b.WriteString(inlineHTML(text[last:]))
	return b.String()
}

func inlineHTML(text string) string {
	s := templ.EscapeString(text)
	s = inlineCodeRe.ReplaceAllString(s, "<code>$1</code>")
	return boldRe.ReplaceAllString(s, "<b>$1</b>")
}
