// Package extract turns free-form model output into structured values.
// Every function is pure and never fails on malformed input: callers get an
// explicit "not found" or a deterministic fallback instead.
package extract

import (
	"regexp"
	"strings"
)

// Section headings the model is asked to produce.
const (
	HeadingPrompt    = "Prompt"
	HeadingCritique  = "Critique"
	HeadingQuestions = "Questions to Improve"
)

var knownHeadings = []string{HeadingPrompt, HeadingCritique, HeadingQuestions}

// fenceLanguages are the info strings dropped from an opening fence line.
// Any other first line is content: models sometimes open a fence directly
// with the prompt text.
const fenceLanguages = "markdown|md|text|txt|plaintext|plain|prompt|json|yaml|yml|xml|html|" +
	"go|python|py|javascript|js|typescript|ts|bash|sh|shell|sql"

// FenceBody matches a triple-backtick block; group 1 is its content without a
// known language tag.
const FenceBody = "```(?:(?i:" + fenceLanguages + ")[ \\t]*\\n)?(.*?)```"

var (
	anyFenceRe = regexp.MustCompile("(?s)" + FenceBody)
	ruleRe     = regexp.MustCompile(`^\s*-{3,}\s*$`)
	boldLineRe = regexp.MustCompile(`^\s*\*\*\s*([^*\n]+?)\s*\*\*`)
	// A bold label alone on its line, with the colon inside or after it.
	labelLineRe = regexp.MustCompile(`^\s*\*\*\s*[^*\n]+?\s*(:)?\s*\*\*\s*(:)?\s*$`)
	listMarkRe = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)
)

func headingPattern(heading string) string {
	return `\*\*[ \t]*` + regexp.QuoteMeta(heading) + `[ \t]*:?[ \t]*\*\*[ \t]*:?`
}

// Fenced returns the trimmed content of the first fenced block that directly
// follows the bold heading (e.g. **Prompt:**). Heading match is case-insensitive.
func Fenced(text, heading string) (string, bool) {
	content, _, ok := fenced(text, heading)
	return content, ok
}

// fenced also returns the byte offset right after the closing fence.
func fenced(text, heading string) (string, int, bool) {
	re, err := regexp.Compile(`(?is)` + headingPattern(heading) + `\s*` + FenceBody)
	if err != nil {
		return "", 0, false
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", 0, false
	}
	content := strings.TrimSpace(text[loc[2]:loc[3]])
	if content == "" {
		return "", 0, false
	}
	return content, loc[1], true
}

// AnyFence returns the trimmed content of the first triple-backtick block
// anywhere in text.
func AnyFence(text string) (string, bool) {
	m := anyFenceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	content := strings.TrimSpace(m[1])
	if content == "" {
		return "", false
	}
	return content, true
}

// Section returns the trimmed text after a bold heading up to the next heading
// line, a horizontal rule or the end of text.
func Section(text, heading string) (string, bool) {
	start, end, ok := sectionBounds(text, heading)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(text[start:end]), true
}

// sectionBounds locates the content of a section as byte offsets. The heading
// must start a line.
func sectionBounds(text, heading string) (int, int, bool) {
	re, err := regexp.Compile(`(?im)^[ \t]*` + headingPattern(heading))
	if err != nil {
		return 0, 0, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return 0, 0, false
	}

	start := loc[1]
	end := len(text)
	offset := start
	lines := strings.SplitAfter(text[start:], "\n")
	for i, line := range lines {
		if i > 0 && isBoundary(line) {
			end = offset
			break
		}
		offset += len(line)
	}
	return start, end, true
}

// isBoundary reports whether a line ends the current section: a horizontal
// rule, one of the known headings, or any other bold label line ending in a
// colon. Inline labels followed by text (**Clarity:** vague) stay inside.
func isBoundary(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if ruleRe.MatchString(line) {
		return true
	}
	if m := labelLineRe.FindStringSubmatch(line); m != nil && (m[1] != "" || m[2] != "") {
		return true
	}
	m := boldLineRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	label := strings.TrimSpace(strings.TrimSuffix(m[1], ":"))
	for _, h := range knownHeadings {
		if strings.EqualFold(label, h) {
			return true
		}
	}
	return false
}

// NumberedList splits text into items, stripping "1." / "1)" / bullet
// prefixes and dropping blank lines. Order is preserved.
func NumberedList(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarkRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}
