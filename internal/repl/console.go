// Package repl is the terminal front end: one session driven line by line.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/set-night/promptforge/internal/domain"
	"github.com/set-night/promptforge/internal/extract"
	"github.com/set-night/promptforge/internal/session"
)

const helpText = `Commands:
  /improve     run an evaluate and refine cycle
  /again       run another cycle
  /finish      leave the improvement loop
  /history     list prompt versions
  /select N    make version N active
  /copy        copy the active prompt to the clipboard
  /reset       start over
  /quit        exit
Anything else is your idea (first) or a refinement request (afterwards).`

// Console reads commands from in and writes the session's progress to out.
type Console struct {
	in      io.Reader
	out     io.Writer
	machine *session.Machine
	// Render turns markdown into terminal output.
	Render func(string) (string, error)
	// Copy puts text on the clipboard.
	Copy func(string) error
}

func New(in io.Reader, out io.Writer, machine *session.Machine) *Console {
	return &Console{
		in:      in,
		out:     out,
		machine: machine,
		Render:  func(s string) (string, error) { return s, nil },
		Copy:    func(string) error { return errors.New("clipboard not available") },
	}
}

// Run processes lines until /quit, end of input or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	s := c.machine.Current(ctx)
	if s.Mode == session.ModeInitial {
		fmt.Fprintln(c.out, "Describe the prompt you need. /help lists commands.")
	} else {
		fmt.Fprintln(c.out, "Resuming your session.")
		c.showActive(s, false)
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := c.handle(ctx, line); quit {
			return nil
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(c.out, helpText)
	case "/reset":
		c.machine.Reset(ctx)
		fmt.Fprintln(c.out, "Started over. Describe your next prompt.")
	case "/history":
		c.showHistory(c.machine.Current(ctx))
	case "/copy":
		c.copyActive(ctx)
	case "/improve":
		c.run(ctx, c.machine.StartImprovement, false)
	case "/again":
		c.run(ctx, c.machine.RunImprovementCycle, false)
	case "/finish":
		c.run(ctx, c.machine.FinishImprovement, true)
	case "/select":
		id, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			fmt.Fprintln(c.out, "Usage: /select N")
			return false
		}
		c.run(ctx, func(ctx context.Context) error { return c.machine.SelectHistory(ctx, id) }, true)
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintln(c.out, "Unknown command. /help lists commands.")
			return false
		}
		c.text(ctx, line)
	}
	return false
}

func (c *Console) text(ctx context.Context, line string) {
	switch c.machine.Current(ctx).Mode {
	case session.ModeInitial:
		c.run(ctx, func(ctx context.Context) error { return c.machine.Submit(ctx, line) }, true)
	case session.ModeRefining:
		before := c.machine.Snapshot().ActiveID
		err := c.stream(ctx, func(ctx context.Context) error { return c.machine.SendChatMessage(ctx, line) })
		if s := c.machine.Snapshot(); err == nil && s.ActiveID != before {
			c.showActive(s, true)
		}
	default:
		fmt.Fprintln(c.out, "An improvement loop is running. Use /again or /finish.")
	}
}

// run executes an intent and shows the active prompt when it succeeds.
func (c *Console) run(ctx context.Context, intent func(context.Context) error, withMessage bool) {
	if err := c.stream(ctx, intent); err != nil {
		return
	}
	c.showActive(c.machine.Snapshot(), withMessage)
}

// stream prints streamed text while intent runs and reports its error.
func (c *Console) stream(ctx context.Context, intent func(context.Context) error) error {
	p := newPrinter(c.out, c.machine.Snapshot())
	unsubscribe := c.machine.Subscribe(p.observe)
	err := intent(ctx)
	unsubscribe()
	p.close()

	if err != nil {
		c.showError(err)
	}
	return err
}

func (c *Console) showError(err error) {
	switch {
	case errors.Is(err, domain.ErrSessionReset):
	case errors.Is(err, domain.ErrBusy):
		fmt.Fprintln(c.out, "Still working on the previous request.")
	case errors.Is(err, domain.ErrEmptyPrompt):
		fmt.Fprintln(c.out, "Type something first.")
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNoActivePrompt):
		fmt.Fprintln(c.out, "That command is not available right now.")
	case errors.Is(err, domain.ErrPromptNotFound):
		fmt.Fprintln(c.out, "No such version. /history lists them.")
	default:
		msg := c.machine.Snapshot().LastError
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintln(c.out, "Error: "+msg)
	}
}

func (c *Console) showActive(s session.State, withMessage bool) {
	active, ok := s.ActivePrompt()
	if !ok {
		return
	}

	var md strings.Builder
	fmt.Fprintf(&md, "## Prompt #%d (%s)\n\n```\n%s\n```\n", active.ID, active.Kind, active.Content)
	if n := len(s.Chat); withMessage && n > 0 && s.Chat[n-1].Role == domain.RoleModel {
		last := s.Chat[n-1]
		md.WriteString("\n")
		if last.Structured != nil {
			md.WriteString(extract.FormatCritique(*last.Structured))
		} else {
			md.WriteString(last.Content)
		}
		md.WriteString("\n")
	}
	c.print(md.String())
}

func (c *Console) showHistory(s session.State) {
	if len(s.History) == 0 {
		fmt.Fprintln(c.out, "No prompts yet.")
		return
	}
	for _, v := range s.History {
		marker := " "
		if v.ID == s.ActiveID {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s #%d %-8s %s\n", marker, v.ID, v.Kind, preview(v.Content, 60))
	}
}

func (c *Console) copyActive(ctx context.Context) {
	active, ok := c.machine.Current(ctx).ActivePrompt()
	if !ok {
		fmt.Fprintln(c.out, "There is no active prompt to copy.")
		return
	}
	if err := c.Copy(active.Content); err != nil {
		slog.Warn("copy to clipboard", "error", err)
		fmt.Fprintln(c.out, "Could not reach the clipboard; here is the prompt:")
		fmt.Fprintln(c.out, active.Content)
		return
	}
	fmt.Fprintf(c.out, "Copied prompt #%d to the clipboard.\n", active.ID)
}

func (c *Console) print(markdown string) {
	out, err := c.Render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprintln(c.out, strings.TrimRight(out, "\n"))
}

func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= n {
		return flat
	}
	return string(r[:n-1]) + "…"
}

// printer writes only the new suffix of each streamed text.
type printer struct {
	out io.Writer

	mu      sync.Mutex
	chatLen int
	known   map[string]struct{}
	printed map[string]int
	current string
}

const replyKey = "reply"

func newPrinter(out io.Writer, start session.State) *printer {
	known := make(map[string]struct{}, len(start.Log))
	for _, e := range start.Log {
		known[e.ID] = struct{}{}
	}
	return &printer{
		out:     out,
		chatLen: len(start.Chat),
		known:   known,
		printed: make(map[string]int),
	}
}

func (p *printer) observe(s session.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(s.Chat); s.Streaming && n > p.chatLen && s.Chat[n-1].Role == domain.RoleModel {
		p.emit(replyKey, "", s.Chat[n-1].Content)
	}
	for _, e := range s.Log {
		if _, old := p.known[e.ID]; !old {
			p.emit(e.ID, e.Title, e.Content)
		}
	}
}

func (p *printer) emit(key, title, text string) {
	done, seen := p.printed[key]
	if !seen {
		if p.current != "" {
			fmt.Fprintln(p.out)
		}
		if title != "" {
			fmt.Fprintf(p.out, "\n== %s\n", title)
		}
		p.current = key
	}
	if len(text) > done {
		fmt.Fprint(p.out, text[done:])
	}
	p.printed[key] = max(done, len(text))
}

func (p *printer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != "" {
		fmt.Fprintln(p.out)
	}
}
