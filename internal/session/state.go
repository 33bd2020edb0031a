// Package session owns the prompt-engineering lifecycle of one conversation:
// the prompt history, the refinement transcript and the improvement log.
// Every change goes through Reduce; Machine sequences model calls around it.
package session

import "github.com/set-night/promptforge/internal/domain"

type Mode int

const (
	ModeInitial Mode = iota
	ModeRefining
	ModeImproving
)

func (m Mode) String() string {
	switch m {
	case ModeRefining:
		return "refining"
	case ModeImproving:
		return "improving"
	default:
		return "initial"
	}
}

// State is an immutable snapshot. Slices are never modified in place, so a
// snapshot stays valid after later transitions.
type State struct {
	Mode Mode
	// History is newest first.
	History []domain.PromptVersion
	// ActiveID is 0 when no version is active.
	ActiveID  int
	Chat      []domain.ChatMessage
	Log       []domain.LogEntry
	Busy      bool
	Streaming bool
	LastError string
}

// ActivePrompt resolves ActiveID against History.
func (s State) ActivePrompt() (domain.PromptVersion, bool) {
	return domain.FindPrompt(s.History, s.ActiveID)
}

// Latest returns the newest version.
func (s State) Latest() (domain.PromptVersion, bool) {
	if len(s.History) == 0 {
		return domain.PromptVersion{}, false
	}
	return s.History[0], true
}

// Idle reports whether a new intent may start.
func (s State) Idle() bool {
	return !s.Busy && !s.Streaming
}

// nextCycle numbers the next improvement cycle from the evaluations logged
// so far.
func (s State) nextCycle() int {
	n := 0
	for _, e := range s.Log {
		if e.Phase == domain.PhaseEvaluation {
			n++
		}
	}
	return n + 1
}

// consistent reports whether a non-initial view has a prompt to show.
func (s State) consistent() bool {
	if s.Mode == ModeInitial {
		return true
	}
	_, ok := s.ActivePrompt()
	return ok
}
